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


// Package storage defines the persistence contract of the enrichment
// pipeline.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Repository interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.Repository
//	repo, err := sqlstore.Open(ctx, cfg)     // returns storage.Repository
//
// Internal constructors may return concrete types since they are only
// used within the implementation package.
//
// # Architecture
//
//   - DocumentRepository: document lifecycle (awaiting, in_progress, done, failed)
//   - CheckpointRepository: the last finished batch cycle per processor
//   - Repository: both of the above, implemented by every backend
//
// Two backends are provided: storage/badger (embedded, the default) and
// storage/sqlstore (SQLite or PostgreSQL).
//
// # Status writes
//
// UpdateStatus never accepts StatusDone and always clears any enrichment.
// UpdateEnrichment is the only way to reach StatusDone, and writes the
// enrichment and the status together. A failed document therefore never
// carries enrichment fields.
//
// # Thread Safety
//
// All repository implementations must be thread-safe. There is no atomic
// claim on fetch; a single scheduler is assumed to process documents.
package storage
