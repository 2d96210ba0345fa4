package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

type rejectValidator struct {
	field string
}

func (v rejectValidator) ValidateRecord(_ string, record []byte) error {
	if gjson.GetBytes(record, v.field).Exists() {
		return errors.New("forbidden field " + v.field)
	}
	return nil
}

type item struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

func TestSnapshots_SaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	s := NewSnapshots(kv, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	in := []item{{ID: "1", ClientID: "7", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}}
	if err := s.Save(ctx, KeyTasks, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, _ := kv.Get(ctx, KeyTasks)
	if v := gjson.GetBytes(raw, "schema_version").Int(); v != SchemaVersion {
		t.Errorf("schema_version: got %d", v)
	}
	if k := gjson.GetBytes(raw, "key").String(); k != KeyTasks {
		t.Errorf("key: got %q", k)
	}
	if at := gjson.GetBytes(raw, "saved_at").String(); at != "2024-05-01T00:00:00Z" {
		t.Errorf("saved_at: got %q", at)
	}

	var out []item
	if err := s.Load(ctx, KeyTasks, &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSnapshots_CurrentUserIsSingleRecord(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	s := NewSnapshots(kv, nil)

	if err := s.Save(ctx, KeyCurrentUser, item{ID: "2"}); err != nil {
		t.Fatal(err)
	}
	raw, _ := kv.Get(ctx, KeyCurrentUser)
	if !gjson.GetBytes(raw, "record").IsObject() || gjson.GetBytes(raw, "records").Exists() {
		t.Fatalf("unexpected envelope: %s", raw)
	}
	var out item
	if err := s.Load(ctx, KeyCurrentUser, &out); err != nil || out.ID != "2" {
		t.Fatalf("Load: got %+v, %v", out, err)
	}
}

func TestSnapshots_LoadMissing(t *testing.T) {
	s := NewSnapshots(NewMemoryStore(), nil)
	var out []item
	if err := s.Load(context.Background(), KeyUsers, &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSnapshots_UpgradeV0(t *testing.T) {
	s := NewSnapshots(NewMemoryStore(), nil)
	legacy := `[{"id":"1","clientId":"7","createdAt":"2024-01-15"},{"id":"2","clientId":"8","createdAt":"2024-01-20T10:00:00Z"}]`

	payload, err := s.Decode(KeyTasks, []byte(legacy))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var out []item
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("records: got %d, want 2", len(out))
	}
	if out[0].ClientID != "7" || !out[0].CreatedAt.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first record: got %+v", out[0])
	}
	if out[1].ClientID != "8" {
		t.Errorf("second record: got %+v", out[1])
	}
}

func TestSnapshots_DecodeRejects(t *testing.T) {
	cases := []struct {
		name string
		key  string
		data string
	}{
		{"not json", KeyTasks, `{"schema_version":1,`},
		{"newer version", KeyTasks, `{"schema_version":9,"key":"paytask_tasks","records":[]}`},
		{"key mismatch", KeyTasks, `{"schema_version":1,"key":"paytask_users","records":[]}`},
		{"records missing", KeyTasks, `{"schema_version":1,"key":"paytask_tasks"}`},
		{"records not array", KeyTasks, `{"schema_version":1,"key":"paytask_tasks","records":{}}`},
		{"legacy element not object", KeyTasks, `[1,2]`},
		{"legacy current user not object", KeyCurrentUser, `["x"]`},
		{"validator rejects", KeyTasks, `{"schema_version":1,"key":"paytask_tasks","records":[{"id":"1","secret":true}]}`},
	}
	s := NewSnapshots(NewMemoryStore(), rejectValidator{field: "secret"})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Decode(tc.key, []byte(tc.data))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("got %v, want ErrMalformed", err)
			}
		})
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"id":              "id",
		"clientId":        "client_id",
		"submissionNotes": "submission_notes",
		"joinedAt":        "joined_at",
		"fromUserId":      "from_user_id",
	}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q): got %q, want %q", in, got, want)
		}
	}
}
