package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SchemaVersion is the envelope version written by Save.
const SchemaVersion = 1

// ErrMalformed is returned when a stored snapshot cannot be decoded, upgraded or validated.
var ErrMalformed = errors.New("malformed snapshot")

// RecordValidator checks a single decoded record for the given key.
type RecordValidator interface {
	ValidateRecord(key string, record []byte) error
}

// envelope is the on-disk layout of every snapshot. The current-user entry
// carries Record; every other key carries Records.
type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Key           string          `json:"key"`
	SavedAt       time.Time       `json:"saved_at"`
	Records       json.RawMessage `json:"records,omitempty"`
	Record        json.RawMessage `json:"record,omitempty"`
}

// Snapshots reads and writes versioned whole-collection snapshots over a KV backend.
type Snapshots struct {
	kv        KV
	validator RecordValidator
	now       func() time.Time
}

// NewSnapshots returns a snapshot codec over kv. validator may be nil.
func NewSnapshots(kv KV, validator RecordValidator) *Snapshots {
	return &Snapshots{kv: kv, validator: validator, now: time.Now}
}

// Save serializes v and writes it under key, replacing the previous snapshot.
func (s *Snapshots) Save(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	env := envelope{SchemaVersion: SchemaVersion, Key: key, SavedAt: s.now().UTC()}
	if singleRecord(key) {
		env.Record = payload
	} else {
		env.Records = payload
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", key, err)
	}
	return s.kv.Put(ctx, key, data)
}

// Load reads key into dst. It returns ErrNotFound when nothing was stored and
// wraps ErrMalformed when the stored bytes are unusable.
func (s *Snapshots) Load(ctx context.Context, key string, dst any) error {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	payload, err := s.Decode(key, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

// Decode upgrades data to SchemaVersion, validates every record, and returns
// the raw records (or record) payload.
func (s *Snapshots) Decode(key string, data []byte) (json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrMalformed, key)
	}
	version := detectVersion(data)
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema_version %d, newest known is %d", ErrMalformed, key, version, SchemaVersion)
	}
	for version < SchemaVersion {
		step, ok := upgrades[version]
		if !ok {
			return nil, fmt.Errorf("%w: %s: no upgrade from version %d", ErrMalformed, key, version)
		}
		var err error
		if data, err = step(key, data); err != nil {
			return nil, err
		}
		version++
	}

	root := gjson.ParseBytes(data)
	if k := root.Get("key").String(); k != key {
		return nil, fmt.Errorf("%w: snapshot key %q stored under %q", ErrMalformed, k, key)
	}
	field := "records"
	if singleRecord(key) {
		field = "record"
	}
	res := root.Get(field)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %s has no %s", ErrMalformed, key, field)
	}
	if err := s.validate(key, res); err != nil {
		return nil, err
	}
	return json.RawMessage(res.Raw), nil
}

func (s *Snapshots) validate(key string, res gjson.Result) error {
	if singleRecord(key) {
		if !res.IsObject() {
			return fmt.Errorf("%w: %s record is not an object", ErrMalformed, key)
		}
		return s.validateOne(key, 0, res)
	}
	if !res.IsArray() {
		return fmt.Errorf("%w: %s records is not an array", ErrMalformed, key)
	}
	for i, rec := range res.Array() {
		if err := s.validateOne(key, i, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshots) validateOne(key string, i int, rec gjson.Result) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.ValidateRecord(key, []byte(rec.Raw)); err != nil {
		return fmt.Errorf("%w: %s[%d]: %v", ErrMalformed, key, i, err)
	}
	return nil
}

func singleRecord(key string) bool {
	return key == KeyCurrentUser
}

// detectVersion treats anything without a schema_version (a bare array or a
// bare object) as the unversioned layout written by the browser client.
func detectVersion(data []byte) int {
	root := gjson.ParseBytes(data)
	if root.IsArray() {
		return 0
	}
	v := root.Get("schema_version")
	if !v.Exists() {
		return 0
	}
	return int(v.Int())
}

// upgrades maps a schema version to the step producing the next version.
var upgrades = map[int]func(key string, data []byte) ([]byte, error){
	0: upgradeV0,
}

// dateOnlyFields may hold a bare YYYY-MM-DD in version 0 snapshots.
var dateOnlyFields = map[string]bool{
	"joined_at":    true,
	"created_at":   true,
	"deadline":     true,
	"submitted_at": true,
}

// upgradeV0 wraps a bare camelCase collection into a version 1 envelope with
// snake_case fields and RFC 3339 dates.
func upgradeV0(key string, data []byte) ([]byte, error) {
	root := gjson.ParseBytes(data)
	out := []byte(`{}`)
	var err error
	if out, err = sjson.SetBytes(out, "schema_version", 1); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "key", key); err != nil {
		return nil, err
	}

	if singleRecord(key) {
		if !root.IsObject() {
			return nil, fmt.Errorf("%w: %s: expected an object", ErrMalformed, key)
		}
		rec, err := snakeRecord(root)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(out, "record", rec)
	}

	if !root.IsArray() {
		return nil, fmt.Errorf("%w: %s: expected an array", ErrMalformed, key)
	}
	if out, err = sjson.SetRawBytes(out, "records", []byte(`[]`)); err != nil {
		return nil, err
	}
	for i, el := range root.Array() {
		if !el.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d]: expected an object", ErrMalformed, key, i)
		}
		rec, err := snakeRecord(el)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "records.-1", rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func snakeRecord(obj gjson.Result) ([]byte, error) {
	rec := []byte(`{}`)
	var setErr error
	obj.ForEach(func(k, v gjson.Result) bool {
		name := snakeCase(k.String())
		raw := v.Raw
		if dateOnlyFields[name] && v.Type == gjson.String && len(v.Str) == len("2006-01-02") {
			raw = strconv.Quote(v.Str + "T00:00:00Z")
		}
		rec, setErr = sjson.SetRawBytes(rec, name, []byte(raw))
		return setErr == nil
	})
	if setErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, setErr)
	}
	return rec, nil
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
