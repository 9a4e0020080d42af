package ingestion

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/refresh"
)

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

type fakeDB struct {
	affected int64
	err      error
	args     []any
}

func (f *fakeDB) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult(f.affected), nil
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AddTitlesRequest
		wantErr string
	}{
		{"ok", AddTitlesRequest{Titles: []string{" Love Song ", "Hate Song"}}, ""},
		{"empty list", AddTitlesRequest{}, "titles"},
		{"blank title", AddTitlesRequest{Titles: []string{"A", "   "}}, "titles[1]"},
		{"too long", AddTitlesRequest{Titles: []string{strings.Repeat("x", 1025)}}, "titles[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if tt.req.Titles[0] != "Love Song" {
					t.Errorf("titles not trimmed: %q", tt.req.Titles[0])
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantErr]; !ok {
				t.Errorf("fields = %v, want key %q", verr.Fields, tt.wantErr)
			}
		})
	}
}

func TestAddTitlesNotifiesOnlyWhenInserted(t *testing.T) {
	var notified []refresh.CatalogUpdated
	notifier := NotifierFunc(func(_ context.Context, ev refresh.CatalogUpdated) error {
		notified = append(notified, ev)
		return nil
	})

	db := &fakeDB{affected: 2}
	resp, err := NewPublisher(db, notifier).AddTitles(context.Background(), &AddTitlesRequest{Titles: []string{"A", "B"}, Reason: "new release"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Inserted != 2 || resp.Status != "accepted" || len(notified) != 1 || notified[0].Reason != "new release" {
		t.Errorf("resp=%+v notified=%+v", resp, notified)
	}

	db.affected = 0
	resp, _ = NewPublisher(db, notifier).AddTitles(context.Background(), &AddTitlesRequest{Titles: []string{"A"}})
	if resp.Status != "unchanged" || len(notified) != 1 {
		t.Errorf("no-op insert should not notify: resp=%+v notified=%d", resp, len(notified))
	}
}

func TestAddTitlesNotifyFailureStillStores(t *testing.T) {
	notifier := NotifierFunc(func(context.Context, refresh.CatalogUpdated) error { return errors.New("broker down") })
	resp, err := NewPublisher(&fakeDB{affected: 1}, notifier).AddTitles(context.Background(), &AddTitlesRequest{Titles: []string{"A"}})
	if err != nil || resp.Status != "stored" {
		t.Errorf("resp=%+v err=%v", resp, err)
	}
}

func TestHandler(t *testing.T) {
	noop := NotifierFunc(func(context.Context, refresh.CatalogUpdated) error { return nil })
	tests := []struct {
		name string
		db   *fakeDB
		body string
		want int
	}{
		{"accepted", &fakeDB{affected: 1}, `{"titles":["Feel Good Inc."]}`, http.StatusAccepted},
		{"bad json", &fakeDB{}, `{"titles":`, http.StatusBadRequest},
		{"invalid", &fakeDB{}, `{"titles":[]}`, http.StatusBadRequest},
		{"db error", &fakeDB{err: errors.New("conn reset")}, `{"titles":["A"]}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewPublisher(tt.db, noop))
			rec := httptest.NewRecorder()
			h.AddTitles(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/titles", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}
