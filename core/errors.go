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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidEnrichment indicates an Enrichment failed validation.
	ErrInvalidEnrichment = errors.New("invalid enrichment")

	// ErrInvalidStatus indicates an unknown EnrichmentStatus value.
	ErrInvalidStatus = errors.New("invalid enrichment status")

	// ErrEmptyContent indicates a document has no usable text.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyURL indicates the URL field is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyField indicates a required enrichment field is empty.
	ErrEmptyField = errors.New("required field is empty")
)
