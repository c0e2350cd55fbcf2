// Package gamestream replays stored logs in upload order without holding them all in memory.
package gamestream

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/leighmacdonald/rglstats/internal/gamelog"
	"github.com/leighmacdonald/rglstats/pkg/log"
)

var (
	ErrOpenStore  = errors.New("failed to open game log store")
	ErrReadRecord = errors.New("failed to read game log record")
	ErrDuplicate  = errors.New("game log already stored")
	ErrInvalidRaw = errors.New("invalid raw game log")
)

// Stream yields logs in non-decreasing upload time. Each call to Games starts a new pass.
type Stream interface {
	Games() iter.Seq2[gamelog.GameLog, error]
}

type entry struct {
	timestamp int64
	offset    int64
	length    int
}

// header is the minimal subset of a record needed to place it in the index.
type header struct {
	ID   int64 `json:"id"`
	Info struct {
		Date int64 `json:"date"`
	} `json:"info"`
}

// Store is an append only json lines file of logs with an in memory index of
// (timestamp, offset) pairs sorted by timestamp. Ties keep storage order.
type Store struct {
	path  string
	mu    *sync.RWMutex
	index []entry
	ids   map[int64]struct{}
	size  int64

	// unterminated is set when the file does not end in a newline.
	unterminated bool
}

// Open scans the file once to build the index. A missing file is treated as an empty store.
func Open(path string) (*Store, error) {
	store := &Store{
		path: path,
		mu:   &sync.RWMutex{},
		ids:  map[int64]struct{}{},
	}

	file, errOpen := os.Open(path)
	if errOpen != nil {
		if errors.Is(errOpen, os.ErrNotExist) {
			return store, nil
		}

		return nil, errors.Join(errOpen, ErrOpenStore)
	}

	defer log.Closer(file)

	var (
		reader = bufio.NewReader(file)
		offset int64
		lineNo int
	)

	for {
		line, errRead := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++

			store.indexLine(line, offset, lineNo)

			offset += int64(len(line))
			store.unterminated = line[len(line)-1] != '\n'
		}

		if errRead != nil {
			if errors.Is(errRead, io.EOF) {
				break
			}

			return nil, errors.Join(errRead, ErrOpenStore)
		}
	}

	store.size = offset

	slices.SortStableFunc(store.index, func(a, b entry) int {
		return cmp.Compare(a.timestamp, b.timestamp)
	})

	return store, nil
}

func (s *Store) indexLine(line []byte, offset int64, lineNo int) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}

	var head header
	if errHead := json.Unmarshal(trimmed, &head); errHead != nil {
		// Kept in the index so the decode error surfaces to the consumer for this record.
		slog.Warn("Malformed game log line", slog.Int("line", lineNo), log.ErrAttr(errHead))
	} else {
		s.ids[head.ID] = struct{}{}
	}

	s.index = append(s.index, entry{timestamp: head.Info.Date, offset: offset, length: len(line)})
}

func (s *Store) Path() string {
	return s.path
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.index)
}

// Has reports whether a log with the id is stored.
func (s *Store) Has(logID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, found := s.ids[logID]

	return found
}

// Append writes one raw log document as a new line and adds it to the index.
func (s *Store) Append(raw []byte) error {
	var head header
	if errHead := json.Unmarshal(raw, &head); errHead != nil {
		return errors.Join(errHead, ErrInvalidRaw)
	}

	if head.ID <= 0 || head.Info.Date <= 0 {
		return fmt.Errorf("%w: missing id or date", ErrInvalidRaw)
	}

	buf := &bytes.Buffer{}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.ids[head.ID]; found {
		return fmt.Errorf("%w: %d", ErrDuplicate, head.ID)
	}

	var lead int64
	if s.unterminated {
		buf.WriteByte('\n')

		lead = 1
	}

	if errCompact := json.Compact(buf, raw); errCompact != nil {
		return errors.Join(errCompact, ErrInvalidRaw)
	}

	buf.WriteByte('\n')

	file, errOpen := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if errOpen != nil {
		return errors.Join(errOpen, ErrOpenStore)
	}

	defer log.Closer(file)

	written, errWrite := file.Write(buf.Bytes())
	if errWrite != nil {
		return errors.Join(errWrite, ErrOpenStore)
	}

	s.unterminated = false

	newEntry := entry{timestamp: head.Info.Date, offset: s.size + lead, length: written - int(lead)}

	// Insert after every existing entry with an equal or lower timestamp so ties keep storage order.
	pos, _ := slices.BinarySearchFunc(s.index, head.Info.Date+1, func(e entry, target int64) int {
		return cmp.Compare(e.timestamp, target)
	})

	s.index = slices.Insert(s.index, pos, newEntry)
	s.ids[head.ID] = struct{}{}
	s.size += int64(written)

	return nil
}

// Games returns a lazy iterator over the stored logs in timestamp order. Each step reads and
// decodes a single record. Mutating the store while iterating is not supported.
func (s *Store) Games() iter.Seq2[gamelog.GameLog, error] {
	return func(yield func(gamelog.GameLog, error) bool) {
		s.mu.RLock()
		index := slices.Clone(s.index)
		s.mu.RUnlock()

		if len(index) == 0 {
			return
		}

		file, errOpen := os.Open(s.path)
		if errOpen != nil {
			yield(gamelog.GameLog{}, errors.Join(errOpen, ErrOpenStore))

			return
		}

		defer log.Closer(file)

		for _, record := range index {
			buf := make([]byte, record.length)
			if _, errRead := file.ReadAt(buf, record.offset); errRead != nil {
				if !yield(gamelog.GameLog{}, errors.Join(errRead, ErrReadRecord)) {
					return
				}

				continue
			}

			game, errDecode := gamelog.Decode(buf)
			if !yield(game, errDecode) {
				return
			}
		}
	}
}

type sliceStream struct {
	logs []gamelog.GameLog
}

// FromSlice adapts already decoded logs into a Stream, stable sorted by timestamp.
func FromSlice(logs []gamelog.GameLog) Stream {
	sorted := slices.Clone(logs)
	slices.SortStableFunc(sorted, func(a, b gamelog.GameLog) int {
		return cmp.Compare(a.Info.Date, b.Info.Date)
	})

	return sliceStream{logs: sorted}
}

func (s sliceStream) Games() iter.Seq2[gamelog.GameLog, error] {
	return func(yield func(gamelog.GameLog, error) bool) {
		for _, game := range s.logs {
			if !yield(game, nil) {
				return
			}
		}
	}
}
