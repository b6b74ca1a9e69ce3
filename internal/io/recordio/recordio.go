package recordio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v2"
	"github.com/dustin/go-humanize"
	"github.com/gnames/csdoptimade/internal/ent/store"
	"github.com/gnames/csdoptimade/pkg/ent/record"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnsys"
)

const maxLineSize = 64 * 1024 * 1024

var (
	recordPrefix = []byte("r/")
	countKey     = []byte("m/count")
)

type recordio struct {
	dir string
	db  *badger.DB
	enc gnfmt.Encoder
}

// New opens a key-value store of records in dir, creating the directory if
// needed.
func New(dir string) (store.Store, error) {
	res := recordio{
		dir: dir,
		enc: gnfmt.GNjson{},
	}

	err := gnsys.MakeDir(dir)
	if err != nil {
		slog.Error("Cannot create directory", "error", err, "dir", dir)
		return nil, err
	}

	options := badger.DefaultOptions(dir)
	options.Logger = nil

	res.db, err = badger.Open(options)
	if err != nil {
		slog.Error("Cannot open key-value store", "error", err, "dir", dir)
		return nil, err
	}
	return &res, nil
}

// Close closes the key-value store.
func (r *recordio) Close() error {
	if r.db == nil {
		slog.Warn("key-value store is nil")
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Len returns the number of indices in the store.
func (r *recordio) Len() (int, error) {
	if r.db == nil {
		return 0, record.ErrClosed
	}
	txn := r.db.NewTransaction(false)
	defer txn.Discard()
	return count(txn)
}

// Open creates a reader with its own read-only transaction.
func (r *recordio) Open() (record.Reader, error) {
	if r.db == nil {
		return nil, record.ErrClosed
	}
	txn := r.db.NewTransaction(false)
	n, err := count(txn)
	if err != nil {
		txn.Discard()
		return nil, err
	}
	res := reader{txn: txn, count: n, enc: r.enc}
	return &res, nil
}

// Load removes all data from the store and imports records from a JSON
// lines stream. A line that cannot be decoded keeps its index, but no record
// is saved for it.
func (r *recordio) Load(rd io.Reader) (int, error) {
	if r.db == nil {
		return 0, record.ErrClosed
	}
	err := r.db.DropAll()
	if err != nil {
		slog.Error("Cannot reset key-value store", "error", err, "dir", r.dir)
		return 0, err
	}

	wb := r.db.NewWriteBatch()
	flushed := false
	defer func() {
		if !flushed {
			wb.Cancel()
		}
	}()

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var idx, bad int
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var rec record.Record
		if err = r.enc.Decode(line, &rec); err != nil {
			slog.Warn("Cannot decode record", "error", err, "index", idx)
			bad++
			idx++
			continue
		}

		var val []byte
		if val, err = r.enc.Encode(rec); err != nil {
			return 0, err
		}
		if err = wb.Set(recordKey(idx), val); err != nil {
			slog.Error("Cannot save record", "error", err, "index", idx)
			return 0, err
		}

		idx++
		if idx%100_000 == 0 {
			fmt.Printf("\r%s", strings.Repeat(" ", 40))
			fmt.Printf("\rLoaded %s records", humanize.Comma(int64(idx)))
		}
	}
	if err = sc.Err(); err != nil {
		slog.Error("Cannot read records", "error", err)
		return 0, err
	}

	if err = wb.Set(countKey, encodeIndex(idx)); err != nil {
		return 0, err
	}
	flushed = true
	if err = wb.Flush(); err != nil {
		slog.Error("Cannot flush records", "error", err)
		return 0, err
	}

	fmt.Printf("\r%s\r", strings.Repeat(" ", 40))
	slog.Info("Records loaded",
		"records", humanize.Comma(int64(idx-bad)),
		"undecodable", humanize.Comma(int64(bad)),
	)
	return idx, nil
}

type reader struct {
	txn   *badger.Txn
	count int
	enc   gnfmt.Encoder
}

// Entry returns the record at idx.
func (r *reader) Entry(idx int) (record.Record, record.Status, error) {
	var res record.Record
	if r.txn == nil {
		return res, record.NotFound, record.ErrClosed
	}
	if idx < 0 || idx >= r.count {
		return res, record.OutOfRange, nil
	}

	item, err := r.txn.Get(recordKey(idx))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return res, record.NotFound, nil
	}
	if err != nil {
		return res, record.NotFound, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return res, record.NotFound, err
	}
	if err = r.enc.Decode(val, &res); err != nil {
		return res, record.NotFound, fmt.Errorf("record %d: %w", idx, err)
	}
	return res, record.Found, nil
}

// Close discards the read transaction.
func (r *reader) Close() error {
	if r.txn == nil {
		return nil
	}
	r.txn.Discard()
	r.txn = nil
	return nil
}

func count(txn *badger.Txn) (int, error) {
	item, err := txn.Get(countKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("corrupted record count of %d bytes", len(val))
	}
	return int(binary.BigEndian.Uint64(val)), nil
}

func recordKey(idx int) []byte {
	res := make([]byte, 0, len(recordPrefix)+8)
	res = append(res, recordPrefix...)
	return append(res, encodeIndex(idx)...)
}

func encodeIndex(idx int) []byte {
	res := make([]byte, 8)
	binary.BigEndian.PutUint64(res, uint64(idx))
	return res
}
