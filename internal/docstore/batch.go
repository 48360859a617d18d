package docstore

import (
	"context"
	"fmt"
)

// WriteKind identifies a single batched write.
type WriteKind int

const (
	WriteSet WriteKind = iota + 1
	WriteUpdate
	WriteDelete
)

// Write is one operation of a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     map[string]any
	Merge      bool
}

// SetWrite builds a Set operation.
func SetWrite(collection, id string, fields map[string]any, opts ...SetOption) Write {
	return Write{Kind: WriteSet, Collection: collection, ID: id, Fields: fields, Merge: ResolveSetOptions(opts...).Merge}
}

// UpdateWrite builds an Update operation.
func UpdateWrite(collection, id string, fields map[string]any) Write {
	return Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: fields}
}

// DeleteWrite builds a Delete operation.
func DeleteWrite(collection, id string) Write {
	return Write{Kind: WriteDelete, Collection: collection, ID: id}
}

// AddTo appends w to b.
func (w Write) AddTo(b Batch) {
	switch w.Kind {
	case WriteSet:
		if w.Merge {
			b.Set(w.Collection, w.ID, w.Fields, Merge())
		} else {
			b.Set(w.Collection, w.ID, w.Fields)
		}
	case WriteUpdate:
		b.Update(w.Collection, w.ID, w.Fields)
	case WriteDelete:
		b.Delete(w.Collection, w.ID)
	}
}

// Unit is a group of writes that must land in the same commit.
type Unit []Write

// PlanChunks packs units greedily, in order, into chunks of at most limit
// writes without splitting any unit.
func PlanChunks(units []Unit, limit int) ([][]Write, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit %d", ErrBatchTooLarge, limit)
	}
	var chunks [][]Write
	var cur []Write
	for _, u := range units {
		if len(u) > limit {
			return nil, fmt.Errorf("%w: unit of %d writes, limit %d", ErrBatchTooLarge, len(u), limit)
		}
		if len(cur)+len(u) > limit {
			chunks = append(chunks, cur)
			cur = nil
		}
		cur = append(cur, u...)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks, nil
}

// Singles wraps every write in its own unit.
func Singles(writes []Write) []Unit {
	units := make([]Unit, len(writes))
	for i, w := range writes {
		units[i] = Unit{w}
	}
	return units
}

// CommitChunks commits each chunk as an independent batch in order. After each
// successful commit onCommit, when non-nil, receives the number of writes
// committed so far and the total. The first failure stops the run; chunks
// already committed stay committed.
func CommitChunks(ctx context.Context, s Store, chunks [][]Write, onCommit func(done, total int)) (int, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	done := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		b := s.Batch()
		for _, w := range chunk {
			w.AddTo(b)
		}
		if err := b.Commit(ctx); err != nil {
			return done, fmt.Errorf("commit chunk %d/%d: %w", i+1, len(chunks), err)
		}
		done += len(chunk)
		if onCommit != nil {
			onCommit(done, total)
		}
	}
	return done, nil
}
