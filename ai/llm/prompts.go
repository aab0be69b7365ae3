package llm

import (
	"fmt"
	"strings"
)

const summarizeSystemPrompt = `You are a news editor. Summarize the article the user sends you.

Rules:
- Write at most %d characters.
- Write in the same language as the article.
- Output ONLY the summary. Do not include any preamble, heading, explanation or quotation marks.`

const translateSystemPrompt = `You are a professional translator. Translate the text the user sends you from %s into %s.

Rules:
- Preserve the meaning and tone; do not add or omit information.
- Output ONLY the translation. Do not include any preamble, explanation, notes or quotation marks.`

const detectLanguageSystemPrompt = `Identify the language of the text the user sends you.

Output ONLY the two-letter ISO 639-1 code of the language in lowercase, for example "en", "zh" or "fr".
Do not include any other words or punctuation.`

const keywordsSystemPrompt = `Extract the %d most important keywords from the text the user sends you.

Rules:
- Order the keywords from most to least important.
- Each keyword is 1-3 words, in the same language as the text.
- Output ONLY the keywords as a single comma-separated line. No numbering, no explanation.`

const categorizeSystemPrompt = `Classify the article the user sends you into exactly one of these categories:

%s

Output ONLY the category name exactly as written above. If none fits, output "other".`

const categorizeUserTemplate = `Title: %s

%s`

func buildSummarizePrompt(targetLength int) string {
	return fmt.Sprintf(summarizeSystemPrompt, targetLength)
}

func buildTranslatePrompt(sourceLang, targetLang string) string {
	if sourceLang == "" {
		sourceLang = "the source language"
	}
	return fmt.Sprintf(translateSystemPrompt, sourceLang, targetLang)
}

func buildKeywordsPrompt(max int) string {
	return fmt.Sprintf(keywordsSystemPrompt, max)
}

func buildCategorizePrompt(categories []string) string {
	return fmt.Sprintf(categorizeSystemPrompt, strings.Join(categories, "\n"))
}

func buildCategorizeInput(title, text string) string {
	return fmt.Sprintf(categorizeUserTemplate, title, text)
}
