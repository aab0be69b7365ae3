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


package badger

import (
	"errors"

	"github.com/poiesic/enricher/storage"
)

// Repository combines the document and checkpoint repositories over one
// backend. Close closes the backend.
type Repository struct {
	*DocumentRepository
	*CheckpointRepository
	backend *Backend
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens a BadgerDB database at path.
//
// Returns storage.Repository interface to enforce abstraction.
func NewRepository(path string) (storage.Repository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newRepository(backend), nil
}

func newRepository(backend *Backend) *Repository {
	return &Repository{
		DocumentRepository:   NewDocumentRepository(backend),
		CheckpointRepository: NewCheckpointRepository(backend),
		backend:              backend,
	}
}

// Close closes the repositories and the backend.
func (r *Repository) Close() error {
	return errors.Join(r.DocumentRepository.Close(), r.backend.Close())
}
