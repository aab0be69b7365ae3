// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package openai provides the ai.Provider adapter for OpenAI-compatible APIs.
//
// This package uses the langchaingo library to talk to OpenAI or any vendor
// exposing the chat completions protocol. The qianwen and huoshan provider
// ids use it with their vendor base URLs.
//
// # Usage
//
//	config := ai.DefaultProviderConfig(ai.ProviderQianwen)
//	config.APIKey = os.Getenv("DASHSCOPE_API_KEY")
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	summary, err := provider.Summarize(ctx, "article text", 400)
package openai
