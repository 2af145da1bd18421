package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// recorder collects the versions whose converters ran.
type recorder struct {
	ran    []int
	failAt int
}

func (r *recorder) converters(versions ...int) []Converter {
	out := make([]Converter, 0, len(versions))
	for _, v := range versions {
		v := v
		out = append(out, ConverterFunc(v, "test", func(ctx context.Context) error {
			if v == r.failAt {
				return errors.New("disk on fire")
			}
			r.ran = append(r.ran, v)
			return nil
		}))
	}
	return out
}

type countingObserver struct {
	version int
	ok      int
	failed  int
}

func (o *countingObserver) SetSchemaVersion(v int) { o.version = v }
func (o *countingObserver) RecordMigration(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name     string
		versions []int
		wantErr  error
	}{
		{name: "empty", versions: nil},
		{name: "implicit baseline", versions: []int{2, 3, 4}},
		{name: "explicit baseline", versions: []int{1, 2, 3}},
		{name: "unordered registration", versions: []int{4, 2, 3}},
		{name: "gap", versions: []int{1, 2, 4}, wantErr: ErrVersionGap},
		{name: "starts too high", versions: []int{3, 4}, wantErr: ErrVersionGap},
		{name: "duplicate", versions: []int{2, 3, 3}, wantErr: ErrDuplicateVersion},
		{name: "zero", versions: []int{0, 2}, wantErr: ErrInvalidVersion},
		{name: "negative", versions: []int{-1}, wantErr: ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := NewRegistry(r.converters(tt.versions...)...).Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_PendingAndLatest(t *testing.T) {
	r := &recorder{}
	reg := NewRegistry(r.converters(2, 3, 4)...)

	if got := reg.Latest(); got != 4 {
		t.Errorf("Latest() = %d, want 4", got)
	}
	if got := reg.Pending(1); !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Errorf("Pending(1) = %v", got)
	}
	if got := reg.Pending(3); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("Pending(3) = %v", got)
	}
	if got := reg.Pending(4); len(got) != 0 {
		t.Errorf("Pending(4) = %v, want none", got)
	}
	if got := NewRegistry().Latest(); got != BaselineVersion {
		t.Errorf("empty Latest() = %d, want %d", got, BaselineVersion)
	}
}

func TestRegistry_MustRegister(t *testing.T) {
	r := &recorder{}
	reg := NewRegistry()
	reg.MustRegister(r.converters(2, 3)...)
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustRegister() with a gap did not panic")
			}
		}()
		reg.MustRegister(r.converters(5)...)
	}()

	if reg.Len() != 2 || reg.Latest() != 3 {
		t.Errorf("registry changed by failed MustRegister: len=%d latest=%d", reg.Len(), reg.Latest())
	}
	reg.MustRegister(r.converters(4)...)
	if reg.Latest() != 4 {
		t.Errorf("Latest() = %d, want 4", reg.Latest())
	}
}

func TestCheckAndMigrate_FreshDatabase(t *testing.T) {
	r := &recorder{}
	store := NewMemoryStore()
	obs := &countingObserver{}
	m := New(store, NewRegistry(r.converters(2, 3, 4)...), WithObserver(obs))

	if err := m.CheckAndMigrate(context.Background()); err != nil {
		t.Fatalf("CheckAndMigrate() error = %v", err)
	}

	if !reflect.DeepEqual(r.ran, []int{2, 3, 4}) {
		t.Errorf("ran %v, want [2 3 4]", r.ran)
	}

	history := store.History()
	want := []VersionRecord{{DatabaseVersion: 2}, {DatabaseVersion: 3}, {DatabaseVersion: 4}}
	if !reflect.DeepEqual(history, want) {
		t.Errorf("saved %+v, want %+v", history, want)
	}
	if obs.version != 4 || obs.ok != 3 {
		t.Errorf("observer saw version=%d ok=%d", obs.version, obs.ok)
	}
}

func TestCheckAndMigrate_ExplicitBaselineSkippedOnFreshDatabase(t *testing.T) {
	r := &recorder{}
	store := NewMemoryStore()
	m := New(store, NewRegistry(r.converters(1, 2)...))

	if err := m.CheckAndMigrate(context.Background()); err != nil {
		t.Fatalf("CheckAndMigrate() error = %v", err)
	}
	if !reflect.DeepEqual(r.ran, []int{2}) {
		t.Errorf("ran %v, want [2]", r.ran)
	}
}

func TestCheckAndMigrate_ResumesAfterCrash(t *testing.T) {
	store := NewMemoryStore()

	first := &recorder{failAt: 4}
	err := New(store, NewRegistry(first.converters(2, 3, 4, 5)...)).CheckAndMigrate(context.Background())

	var merr *MigrationError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *MigrationError, got %v", err)
	}
	if merr.Version != 4 || merr.Applied != 3 {
		t.Errorf("MigrationError = %+v", merr)
	}

	rec, _, _ := store.Load()
	if rec.DatabaseVersion != 3 {
		t.Errorf("persisted version = %d, want 3", rec.DatabaseVersion)
	}
	if !strings.Contains(rec.LastError, "disk on fire") {
		t.Errorf("LastError = %q", rec.LastError)
	}

	second := &recorder{}
	if err := New(store, NewRegistry(second.converters(2, 3, 4, 5)...)).CheckAndMigrate(context.Background()); err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !reflect.DeepEqual(second.ran, []int{4, 5}) {
		t.Errorf("second run applied %v, want [4 5]", second.ran)
	}

	rec, _, _ = store.Load()
	if rec.DatabaseVersion != 5 || rec.LastError != "" {
		t.Errorf("final record = %+v", rec)
	}
}

func TestCheckAndMigrate_InvalidRegistryAppliesNothing(t *testing.T) {
	tests := []struct {
		name     string
		versions []int
		wantErr  error
	}{
		{name: "gap", versions: []int{1, 2, 4}, wantErr: ErrVersionGap},
		{name: "duplicate", versions: []int{2, 2}, wantErr: ErrDuplicateVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			store := NewMemoryStore()

			err := New(store, NewRegistry(r.converters(tt.versions...)...)).CheckAndMigrate(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(r.ran) != 0 {
				t.Errorf("converters ran despite invalid registry: %v", r.ran)
			}

			rec, _, _ := store.Load()
			if rec.DatabaseVersion != BaselineVersion || rec.LastError == "" {
				t.Errorf("record = %+v", rec)
			}
		})
	}
}

func TestCheckAndMigrate_NegativeVersionTreatedAsZero(t *testing.T) {
	r := &recorder{}
	store := NewMemoryStoreAt(-5)

	if err := New(store, NewRegistry(r.converters(1, 2)...)).CheckAndMigrate(context.Background()); err != nil {
		t.Fatalf("CheckAndMigrate() error = %v", err)
	}
	if !reflect.DeepEqual(r.ran, []int{1, 2}) {
		t.Errorf("ran %v, want [1 2]", r.ran)
	}
}

func TestCheckAndMigrate_UpToDate(t *testing.T) {
	r := &recorder{}
	store := NewMemoryStoreAt(3)

	if err := New(store, NewRegistry(r.converters(2, 3)...)).CheckAndMigrate(context.Background()); err != nil {
		t.Fatalf("CheckAndMigrate() error = %v", err)
	}
	if len(r.ran) != 0 || len(store.History()) != 0 {
		t.Errorf("expected no work, ran=%v saves=%v", r.ran, store.History())
	}
}

func TestCheckAndMigrate_ConverterPanic(t *testing.T) {
	store := NewMemoryStore()
	conv := ConverterFunc(2, "panics", func(ctx context.Context) error {
		panic("boom")
	})

	err := New(store, NewRegistry(conv)).CheckAndMigrate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
}

func TestCheckAndMigrate_Cancelled(t *testing.T) {
	r := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(NewMemoryStore(), NewRegistry(r.converters(2)...)).CheckAndMigrate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(r.ran) != 0 {
		t.Errorf("ran %v after cancel", r.ran)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "database_version.yaml")
	store := NewFileStore(path)

	_, ok, err := store.Load()
	if err != nil || ok {
		t.Fatalf("Load() on missing file = ok:%v err:%v", ok, err)
	}

	want := VersionRecord{DatabaseVersion: 7, LastError: "converter 8 failed"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = ok:%v err:%v", ok, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "DatabaseVersion: 7") {
		t.Errorf("unexpected file contents:\n%s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the version file, found %d entries", len(entries))
	}
}

func TestFileStore_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.yaml")
	if err := os.WriteFile(path, []byte("DatabaseVersion: [not, a, number]"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewFileStore(path).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
