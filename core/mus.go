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

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored domain types. Field order is the wire
// format: append new fields at the end of a struct's sequence only.
var (
	IDMUS         = idMUS{}
	StatusMUS     = statusMUS{}
	TimeMUS       = timeMUS{}
	EnrichmentMUS = enrichmentMUS{}
	DocumentMUS   = documentMUS{}
	CheckpointMUS = checkpointMUS{}
)

var (
	keywordsMUS      = ord.NewSliceSer[string](ord.String)
	enrichmentPtrMUS = ord.NewPtrSer[Enrichment](EnrichmentMUS)
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type statusMUS struct{}

func (s statusMUS) Marshal(v EnrichmentStatus, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s statusMUS) Unmarshal(bs []byte) (v EnrichmentStatus, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return EnrichmentStatus(str), n, err
}

func (s statusMUS) Size(v EnrichmentStatus) (size int) {
	return ord.String.Size(string(v))
}

func (s statusMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

// timeMUS stores unix microseconds, the same precision the SQL backends
// keep. Decoded times are UTC; the zero time survives a round trip.
type timeMUS struct{}

func (s timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

func (s timeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type enrichmentMUS struct{}

func (s enrichmentMUS) Marshal(v Enrichment, bs []byte) (n int) {
	n = ord.String.Marshal(v.TranslatedTitle, bs)
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += keywordsMUS.Marshal(v.Keywords, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	return n + TimeMUS.Marshal(v.EnrichedAt, bs[n:])
}

func (s enrichmentMUS) Unmarshal(bs []byte) (v Enrichment, n int, err error) {
	v.TranslatedTitle, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Language, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Keywords, n1, err = keywordsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Category, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EnrichedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s enrichmentMUS) Size(v Enrichment) (size int) {
	size = ord.String.Size(v.TranslatedTitle)
	size += ord.String.Size(v.Summary)
	size += ord.String.Size(v.Language)
	size += keywordsMUS.Size(v.Keywords)
	size += ord.String.Size(v.Category)
	return size + TimeMUS.Size(v.EnrichedAt)
}

func (s enrichmentMUS) Skip(bs []byte) (n int, err error) {
	skips := []func([]byte) (int, error){
		ord.String.Skip, ord.String.Skip, ord.String.Skip,
		keywordsMUS.Skip, ord.String.Skip, TimeMUS.Skip,
	}
	return skipAll(bs, skips)
}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.URL, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Body, bs[n:])
	n += ord.String.Marshal(v.Excerpt, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += TimeMUS.Marshal(v.PublishedAt, bs[n:])
	n += TimeMUS.Marshal(v.DiscoveredAt, bs[n:])
	n += StatusMUS.Marshal(v.Status, bs[n:])
	n += enrichmentPtrMUS.Marshal(v.Enrichment, bs[n:])
	return n + TimeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, field := range []*string{&v.URL, &v.Title, &v.Body, &v.Excerpt, &v.Source} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.PublishedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DiscoveredAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status, n1, err = StatusMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Enrichment, n1, err = enrichmentPtrMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.URL)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Body)
	size += ord.String.Size(v.Excerpt)
	size += ord.String.Size(v.Source)
	size += TimeMUS.Size(v.PublishedAt)
	size += TimeMUS.Size(v.DiscoveredAt)
	size += StatusMUS.Size(v.Status)
	size += enrichmentPtrMUS.Size(v.Enrichment)
	return size + TimeMUS.Size(v.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	skips := []func([]byte) (int, error){
		IDMUS.Skip,
		ord.String.Skip, ord.String.Skip, ord.String.Skip, ord.String.Skip, ord.String.Skip,
		TimeMUS.Skip, TimeMUS.Skip, StatusMUS.Skip, enrichmentPtrMUS.Skip, TimeMUS.Skip,
	}
	return skipAll(bs, skips)
}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.CycleID, bs[n:])
	n += TimeMUS.Marshal(v.StartedAt, bs[n:])
	n += TimeMUS.Marshal(v.FinishedAt, bs[n:])
	n += varint.Int.Marshal(v.Attempted, bs[n:])
	n += varint.Int.Marshal(v.Succeeded, bs[n:])
	n += varint.Int.Marshal(v.Failed, bs[n:])
	n += varint.Int.Marshal(v.Deferred, bs[n:])
	return n + TimeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.CycleID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StartedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FinishedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*int{&v.Attempted, &v.Succeeded, &v.Failed, &v.Deferred} {
		*field, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.CycleID)
	size += TimeMUS.Size(v.StartedAt)
	size += TimeMUS.Size(v.FinishedAt)
	size += varint.Int.Size(v.Attempted)
	size += varint.Int.Size(v.Succeeded)
	size += varint.Int.Size(v.Failed)
	size += varint.Int.Size(v.Deferred)
	return size + TimeMUS.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	skips := []func([]byte) (int, error){
		ord.String.Skip, ord.String.Skip, TimeMUS.Skip, TimeMUS.Skip,
		varint.Int.Skip, varint.Int.Skip, varint.Int.Skip, varint.Int.Skip,
		TimeMUS.Skip,
	}
	return skipAll(bs, skips)
}

func skipAll(bs []byte, skips []func([]byte) (int, error)) (n int, err error) {
	for _, skip := range skips {
		n1, err := skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
