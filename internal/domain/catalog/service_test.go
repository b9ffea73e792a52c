package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"media-catalog/internal/domain/events"
)

// -------------------------
// Test stores (in-memory)
// -------------------------

type fakeLogStore struct {
	logs   map[string]events.Log
	writes int
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{logs: map[string]events.Log{}}
}

func (f *fakeLogStore) Read(ctx context.Context, path string) (events.Log, error) {
	if l, ok := f.logs[path]; ok {
		return l, nil
	}
	return events.Log{Header: events.DefaultHeader(), Events: []events.Event{}}, nil
}

func (f *fakeLogStore) Append(ctx context.Context, path string, evs ...events.Event) error {
	l, _ := f.Read(ctx, path)
	seen := map[string]struct{}{}
	for _, ev := range l.Events {
		seen[ev.ID] = struct{}{}
	}
	for _, ev := range evs {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		l.Events = append(l.Events, ev)
	}
	f.logs[path] = l
	return nil
}

func (f *fakeLogStore) Merge(ctx context.Context, path string, log events.Log) (events.Log, error) {
	current, _ := f.Read(ctx, path)
	merged, err := events.Merge(current, log)
	if err != nil {
		return events.Log{}, err
	}
	f.logs[path] = merged
	f.writes++
	return merged, nil
}

func (f *fakeLogStore) Write(ctx context.Context, path string, evs []events.Event) error {
	l, _ := f.Read(ctx, path)
	l.Events = evs
	f.logs[path] = l
	f.writes++
	return nil
}

func (f *fakeLogStore) Remove(ctx context.Context, path string, ev events.Event) (*events.Event, error) {
	l, ok := f.logs[path]
	if !ok {
		return nil, nil
	}
	var removed *events.Event
	kept := make([]events.Event, 0, len(l.Events))
	for _, e := range l.Events {
		if removed == nil && e.ID == ev.ID {
			e := e // per-iteration copy: the go directive predates Go 1.22 loop scoping
			removed = &e
			continue
		}
		kept = append(kept, e)
	}
	l.Events = kept
	f.logs[path] = l
	return removed, nil
}

type fakeEntryStore struct {
	byID    map[string]*Entry
	upserts int
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{byID: map[string]*Entry{}}
}

func (f *fakeEntryStore) Load(ctx context.Context) (Database, error) {
	db := Database{}
	for id, e := range f.byID {
		db[id] = e.Clone()
	}
	return db, nil
}

func (f *fakeEntryStore) Get(ctx context.Context, id string) (*Entry, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (f *fakeEntryStore) Upsert(ctx context.Context, entries ...*Entry) error {
	for _, e := range entries {
		f.byID[e.ID] = e.Clone()
	}
	f.upserts++
	return nil
}

func newTestService(logs *fakeLogStore, entries *fakeEntryStore, clock *testClock) *Service {
	return NewService(logs, entries, "own.json", "laptop").WithClock(clock.now)
}

// -------------------------
// Tests
// -------------------------

func TestService_Tag_AppendsToOwnLog(t *testing.T) {
	logs := newFakeLogStore()
	clock := newTestClock()
	svc := newTestService(logs, newFakeEntryStore(), clock)

	ev, err := svc.Tag(context.Background(), "entry-1", "beach")
	if err != nil {
		t.Fatalf("Tag returned error: %v", err)
	}
	if ev.Type != events.TypeAddTag {
		t.Fatalf("expected addTag event, got %s", ev.Type)
	}
	if ev.Origin != "laptop" {
		t.Fatalf("expected origin laptop, got %s", ev.Origin)
	}

	own := logs.logs["own.json"]
	if len(own.Events) != 1 || own.Events[0].ID != ev.ID {
		t.Fatalf("expected the event appended to own.json, got %#v", own.Events)
	}
}

func TestService_Tag_RejectsEmptyTag(t *testing.T) {
	logs := newFakeLogStore()
	svc := newTestService(logs, newFakeEntryStore(), newTestClock())

	if _, err := svc.Tag(context.Background(), "entry-1", "   "); err != events.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(logs.logs["own.json"].Events) != 0 {
		t.Fatalf("expected nothing appended on invalid input")
	}
}

func TestService_ProducerMethods_RecordExpectedTypes(t *testing.T) {
	logs := newFakeLogStore()
	clock := newTestClock()
	svc := newTestService(logs, newFakeEntryStore(), clock)
	ctx := context.Background()

	calls := []struct {
		call func() (events.Event, error)
		want events.Type
	}{
		{func() (events.Event, error) { return svc.Tag(ctx, "entry-1", "beach") }, events.TypeAddTag},
		{func() (events.Event, error) { return svc.Untag(ctx, "entry-1", "beach") }, events.TypeRemoveTag},
		{func() (events.Event, error) { return svc.Rename(ctx, "entry-1", "Holiday") }, events.TypeRename},
		{func() (events.Event, error) { return svc.Delete(ctx, "entry-1") }, events.TypeDelete},
		{func() (events.Event, error) { return svc.Restore(ctx, "entry-1") }, events.TypeRestore},
		{func() (events.Event, error) { return svc.Rate(ctx, "entry-1", 5) }, events.TypeSetRating},
	}

	for _, c := range calls {
		ev, err := c.call()
		if err != nil {
			t.Fatalf("recording %s: %v", c.want, err)
		}
		if ev.Type != c.want {
			t.Fatalf("expected %s, got %s", c.want, ev.Type)
		}
		clock.advance(time.Second)
	}

	if got := len(logs.logs["own.json"].Events); got != len(calls) {
		t.Fatalf("expected %d events in own log, got %d", len(calls), got)
	}
}

func TestService_Reconcile_FoldsPeerLogAndMaterializes(t *testing.T) {
	logs := newFakeLogStore()
	entries := newFakeEntryStore()
	clock := newTestClock()
	svc := newTestService(logs, entries, clock)
	ctx := context.Background()

	entries.byID["entry-1"] = NewEntry("entry-1", nil)

	// This producer tagged the entry; another device renamed it later.
	if _, err := svc.Tag(ctx, "entry-1", "beach"); err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	clock.advance(time.Minute)
	peer := events.NewRecorder("phone").WithClock(clock.now)
	renamed, err := peer.Rename("entry-1", "Holiday")
	if err != nil {
		t.Fatalf("peer Rename error: %v", err)
	}
	if err := logs.Append(ctx, "peer.json", renamed); err != nil {
		t.Fatalf("seeding peer log: %v", err)
	}

	changed, err := svc.Reconcile(ctx, "peer.json")
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected 1 changed entry, got %d", len(changed))
	}

	if got := len(logs.logs["own.json"].Events); got != 2 {
		t.Fatalf("expected peer event folded into own log, got %d events", got)
	}

	e := entries.byID["entry-1"]
	if !e.HasTag("beach") || e.Title != "Holiday" {
		t.Fatalf("expected both producers' changes applied, got tags %#v title %q", e.Tags, e.Title)
	}
	if entries.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", entries.upserts)
	}

	// Running it again must be a no-op.
	changed, err = svc.Reconcile(ctx, "peer.json")
	if err != nil {
		t.Fatalf("second Reconcile returned error: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("expected no changes on repeat reconcile, got %d", len(changed))
	}
	if entries.upserts != 1 {
		t.Fatalf("expected no further upserts, got %d", entries.upserts)
	}
}

func TestService_Reconcile_PersistsMergedHeader(t *testing.T) {
	logs := newFakeLogStore()
	entries := newFakeEntryStore()
	clock := newTestClock()
	svc := newTestService(logs, entries, clock)
	ctx := context.Background()

	entries.byID["entry-1"] = NewEntry("entry-1", nil)

	// The local log is still at the oldest compatible version; the
	// peer already writes the current one.
	tagged, err := events.NewRecorder("laptop").WithClock(clock.now).AddTag("entry-1", "beach")
	if err != nil {
		t.Fatalf("AddTag error: %v", err)
	}
	logs.logs["own.json"] = events.Log{
		Header: events.NewHeader(events.LogTypeCatalog, events.MinCompatibleLogVersion),
		Events: []events.Event{tagged},
	}
	clock.advance(time.Minute)
	renamed, err := events.NewRecorder("phone").WithClock(clock.now).Rename("entry-1", "Holiday")
	if err != nil {
		t.Fatalf("peer Rename error: %v", err)
	}
	logs.logs["peer.json"] = events.Log{
		Header: events.DefaultHeader(),
		Events: []events.Event{renamed},
	}

	if _, err := svc.Reconcile(ctx, "peer.json"); err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}

	own := logs.logs["own.json"]
	if own.Header.Version != events.CurrentLogVersion {
		t.Fatalf("expected local log raised to version %d, got %d", events.CurrentLogVersion, own.Header.Version)
	}
	if len(own.Events) != 2 {
		t.Fatalf("expected both events persisted, got %d", len(own.Events))
	}
}

func TestService_Reconcile_WithoutPeers_ReplaysOwnLogOnly(t *testing.T) {
	logs := newFakeLogStore()
	entries := newFakeEntryStore()
	svc := newTestService(logs, entries, newTestClock())
	ctx := context.Background()

	entries.byID["entry-1"] = NewEntry("entry-1", nil)
	if _, err := svc.Tag(ctx, "entry-1", "beach"); err != nil {
		t.Fatalf("Tag error: %v", err)
	}

	changed, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile returned error: %v", err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected 1 changed entry, got %d", len(changed))
	}
	if !entries.byID["entry-1"].HasTag("beach") {
		t.Fatalf("expected own log replayed onto the store")
	}
	if logs.writes != 0 {
		t.Fatalf("expected no log rewrite when nothing merged, got %d", logs.writes)
	}
}

func TestService_Reconcile_RejectsIncompatiblePeer(t *testing.T) {
	logs := newFakeLogStore()
	svc := newTestService(logs, newFakeEntryStore(), newTestClock())

	logs.logs["peer.json"] = events.Log{
		Header: events.NewHeader(events.LogType("watchlist"), events.CurrentLogVersion),
		Events: []events.Event{},
	}

	_, err := svc.Reconcile(context.Background(), "peer.json")
	if !errors.Is(err, events.ErrIncompatibleHeader) {
		t.Fatalf("expected ErrIncompatibleHeader, got %v", err)
	}
}

func TestService_MergeEvents_FoldsWithoutPersisting(t *testing.T) {
	logs := newFakeLogStore()
	clock := newTestClock()
	svc := newTestService(logs, newFakeEntryStore(), clock)
	ctx := context.Background()

	// Two devices share one event and each hold one of their own.
	laptop := events.NewRecorder("laptop").WithClock(clock.now)
	tagged, err := laptop.AddTag("entry-1", "beach")
	if err != nil {
		t.Fatalf("AddTag error: %v", err)
	}
	clock.advance(time.Minute)
	phone := events.NewRecorder("phone").WithClock(clock.now)
	renamed, err := phone.Rename("entry-1", "Holiday")
	if err != nil {
		t.Fatalf("Rename error: %v", err)
	}
	if err := logs.Append(ctx, "laptop.json", tagged, renamed); err != nil {
		t.Fatalf("seeding laptop log: %v", err)
	}
	if err := logs.Append(ctx, "phone.json", renamed); err != nil {
		t.Fatalf("seeding phone log: %v", err)
	}

	merged, err := svc.MergeEvents(ctx, "laptop.json", "phone.json")
	if err != nil {
		t.Fatalf("MergeEvents returned error: %v", err)
	}
	if len(merged.Events) != 2 {
		t.Fatalf("expected shared event collapsed, got %d events", len(merged.Events))
	}
	if merged.Events[0].ID != tagged.ID || merged.Events[1].ID != renamed.ID {
		t.Fatalf("expected creation order, got %s then %s", merged.Events[0].ID, merged.Events[1].ID)
	}
	if logs.writes != 0 {
		t.Fatalf("expected no log writes, got %d", logs.writes)
	}

	empty, err := svc.MergeEvents(ctx)
	if err != nil {
		t.Fatalf("MergeEvents with no paths: %v", err)
	}
	if len(empty.Events) != 0 || empty.Header != events.DefaultHeader() {
		t.Fatalf("expected empty default log, got %+v", empty)
	}
}

func TestService_ApplyEvents_PersistsChangedEntries(t *testing.T) {
	entries := newFakeEntryStore()
	clock := newTestClock()
	svc := newTestService(newFakeLogStore(), entries, clock)
	ctx := context.Background()

	rec := events.NewRecorder("laptop").WithClock(clock.now)
	ev, err := rec.AddTag("entry-1", "beach")
	if err != nil {
		t.Fatalf("AddTag error: %v", err)
	}

	db := Database{"entry-1": NewEntry("entry-1", nil)}
	changed, err := svc.ApplyEvents(ctx, db, []events.Event{ev})
	if err != nil {
		t.Fatalf("ApplyEvents returned error: %v", err)
	}
	if len(changed) != 1 {
		t.Fatalf("expected 1 changed entry, got %d", len(changed))
	}
	if stored := entries.byID["entry-1"]; stored == nil || !stored.HasTag("beach") {
		t.Fatalf("expected changed entry persisted, got %#v", stored)
	}
}

func TestService_RemoveEvent_RetractsFromLog(t *testing.T) {
	logs := newFakeLogStore()
	svc := newTestService(logs, newFakeEntryStore(), newTestClock())
	ctx := context.Background()

	ev, err := svc.Tag(ctx, "entry-1", "beach")
	if err != nil {
		t.Fatalf("Tag error: %v", err)
	}

	removed, err := svc.RemoveEvent(ctx, "own.json", ev)
	if err != nil {
		t.Fatalf("RemoveEvent returned error: %v", err)
	}
	if removed == nil || removed.ID != ev.ID {
		t.Fatalf("expected the removed event back, got %#v", removed)
	}
	if len(logs.logs["own.json"].Events) != 0 {
		t.Fatalf("expected the event gone from the log")
	}

	again, err := svc.RemoveEvent(ctx, "own.json", ev)
	if err != nil {
		t.Fatalf("second RemoveEvent returned error: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nil for an event the log no longer holds, got %#v", again)
	}
}

func TestService_Entry_LooksUpStoredEntry(t *testing.T) {
	entries := newFakeEntryStore()
	svc := newTestService(newFakeLogStore(), entries, newTestClock())
	ctx := context.Background()

	stored := NewEntry("entry-1", nil)
	stored.Title = "Holiday"
	entries.byID["entry-1"] = stored

	got, err := svc.Entry(ctx, "entry-1")
	if err != nil {
		t.Fatalf("Entry returned error: %v", err)
	}
	if got.Title != "Holiday" {
		t.Fatalf("expected stored entry, got %+v", got)
	}

	if _, err := svc.Entry(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
	if _, err := svc.Entry(ctx, "   "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}
}
