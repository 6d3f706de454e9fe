package engine

import (
	"errors"
	"testing"
	"time"

	"fulfil/internal/record"
)

func ticket(id string, values map[string]string) record.Record {
	return record.Record{ID: id, Values: values}
}

func TestRecordStore_ReplaceAndSnapshotClone(t *testing.T) {
	var s RecordStore

	before := time.Now()
	s.Replace([]record.Record{
		ticket("T-1001", map[string]string{"Status": "Open"}),
		ticket("T-2002", map[string]string{"Status": "Waiting"}),
	}, nil)

	snap := s.Snapshot()
	if !snap.HasData || len(snap.Records) != 2 {
		t.Fatalf("snapshot = %#v, want 2 records with HasData", snap)
	}
	rec, ok := snap.Lookup("T-2002")
	if !ok || rec.Value("Status") != "Waiting" {
		t.Fatalf("Lookup(T-2002) = %#v ok=%v, want Status=Waiting", rec, ok)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Records[0].Values["Status"] = "mutated"
	snap2 := s.Snapshot()
	if got := snap2.Records[0].Value("Status"); got != "Open" {
		t.Fatalf("Snapshot should deep-clone records; got Status %q want Open", got)
	}
}

func TestRecordStore_ReplaceErrorKeepsPreviousData(t *testing.T) {
	var s RecordStore

	s.Replace([]record.Record{ticket("T-1001", map[string]string{"Status": "Open"})}, nil)

	s.Replace(nil, errors.New("tunnel down"))
	snap := s.Snapshot()
	if len(snap.Records) != 1 || !snap.HasData {
		t.Fatalf("records changed on error: %#v", snap.Records)
	}
	if snap.LastError == nil || snap.LastError.Error() != "tunnel down" {
		t.Fatalf("LastError = %v, want tunnel down", snap.LastError)
	}
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
}

func TestRecordStore_OfflineAfterConsecutiveFailures(t *testing.T) {
	var s RecordStore

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true on fresh store, want false")
	}

	s.Replace(nil, errors.New("fail 1"))
	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true after 1 failure, want false")
	}

	s.Replace(nil, errors.New("fail 2"))
	if !s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = false after 2 failures, want true")
	}

	s.Replace([]record.Record{ticket("T-1001", nil)}, nil)
	snap := s.Snapshot()
	if snap.IsOffline() || snap.ConsecutiveFailures != 0 {
		t.Fatalf("failure count not reset: %#v", snap)
	}
}

func TestRecordStore_IndexRebuiltEachReplace(t *testing.T) {
	var s RecordStore

	s.Replace([]record.Record{ticket("T-1001", nil), ticket("T-2002", nil)}, nil)
	s.Replace([]record.Record{ticket("T-2002", nil)}, nil)

	snap := s.Snapshot()
	if _, ok := snap.Lookup("T-1001"); ok {
		t.Fatal("Lookup(T-1001) found a record deleted by the last poll")
	}
	if idx, ok := snap.Index["T-2002"]; !ok || idx != 0 {
		t.Fatalf("Index[T-2002] = %d ok=%v, want 0 true", idx, ok)
	}
}
