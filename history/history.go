// Package history journals the Steps that Engines take.
//
// A Journal is a BoltDB file with one bucket per engine.  Entries are
// keyed by the bucket's sequence, so they come back in the order they
// were recorded.
package history

import (
	"encoding/binary"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Comcast/eventengine/core"

	bolt "go.etcd.io/bbolt"
)

// Entry is the journaled form of a core.Step.
type Entry struct {
	Seq      uint64             `json:"seq"`
	At       time.Time          `json:"at"`
	Engine   string             `json:"engine"`
	Event    core.Event         `json:"event"`
	Consumed bool               `json:"consumed"`
	Rule     string             `json:"rule,omitempty"`
	Matched  int                `json:"matched"`
	From     core.Configuration `json:"from,omitempty"`
	To       core.Configuration `json:"to,omitempty"`
	Emitted  []core.Event       `json:"emitted,omitempty"`

	// Err is the text of the error (if any) that aborted the step.
	Err string `json:"err,omitempty"`
}

// NewEntry makes an Entry from a Step.
func NewEntry(s *core.Step) *Entry {
	e := &Entry{
		At:       time.Now().UTC(),
		Engine:   s.Engine,
		Event:    s.Event,
		Consumed: s.Consumed,
		Matched:  s.Matched,
		From:     s.From,
		To:       s.To,
		Emitted:  s.Emitted,
	}
	if s.Rule != nil {
		e.Rule = s.Rule.String()
	}
	if s.Err != nil {
		e.Err = s.Err.Error()
	}
	return e
}

// Journal records Steps.
type Journal struct {
	Debug bool

	filename string

	// dir is the temporary directory to remove on Close (if any).
	dir string

	db *bolt.DB
}

// NewJournal makes a Journal in a new temporary directory, which is
// removed by Close.  Journals are always temporary.
func NewJournal() (*Journal, error) {
	dir, err := ioutil.TempDir("", "eventengine-history")
	if err != nil {
		return nil, err
	}
	j, err := openJournal(filepath.Join(dir, "history.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	j.dir = dir
	return j, nil
}

// openJournal opens (or creates) a Journal in the given file.
func openJournal(filename string) (*Journal, error) {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(filename, 0644, opts)
	if err != nil {
		return nil, err
	}
	return &Journal{
		filename: filename,
		db:       db,
	}, nil
}

// Close closes the database and removes it if it's temporary.
func (j *Journal) Close() error {
	err := j.db.Close()
	if j.dir != "" {
		if err := os.RemoveAll(j.dir); err != nil {
			return err
		}
	}
	return err
}

func (j *Journal) logf(format string, args ...interface{}) {
	if j.Debug {
		log.Printf("Journal."+format, args...)
	}
}

// Record journals the step.
func (j *Journal) Record(s *core.Step) error {
	e := NewEntry(s)
	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket(s.Engine))
		if err != nil {
			return err
		}
		if e.Seq, err = b.NextSequence(); err != nil {
			return err
		}
		js, err := json.Marshal(e)
		if err != nil {
			return err
		}
		j.logf("Record %s %s", s.Engine, js)
		return b.Put(key(e.Seq), js)
	})
}

// Anonymous is the bucket for engines without an id.
const Anonymous = "(anonymous)"

// bucket names the engine's bucket.  bbolt refuses empty names.
func bucket(engine string) []byte {
	if engine == "" {
		engine = Anonymous
	}
	return []byte(engine)
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Attach installs a StepHook on the engine and on every engine in
// its pipeline.  Failures to record are logged.
func (j *Journal) Attach(e *core.Engine) {
	for ; e != nil; e = e.Pipeline() {
		e.SetHook(func(s *core.Step) {
			if err := j.Record(s); err != nil {
				log.Printf("Journal.Record %s error %s", s.Engine, err)
			}
		})
	}
}

// Detach removes the hooks that Attach installed.
func (j *Journal) Detach(e *core.Engine) {
	for ; e != nil; e = e.Pipeline() {
		e.SetHook(nil)
	}
}

// Entries returns the engine's entries in the order they were
// recorded.  The entries of an engine without an id are under "" (or
// Anonymous).
func (j *Journal) Entries(engine string) ([]*Entry, error) {
	acc := make([]*Entry, 0, 32)
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket(engine))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, bs := c.First(); k != nil; k, bs = c.Next() {
			var e Entry
			if err := json.Unmarshal(bs, &e); err != nil {
				return err
			}
			acc = append(acc, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	j.logf("Entries %s found %d", engine, len(acc))
	return acc, nil
}

// Engines returns the ids of the engines that have entries.
func (j *Journal) Engines() ([]string, error) {
	var acc []string
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	return acc, err
}

// Clear removes the engine's entries.
func (j *Journal) Clear(engine string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(bucket(engine))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}
