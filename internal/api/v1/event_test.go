package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_Validate(t *testing.T) {
	valid := Event{
		ID:          "01J9ZK3V9GQ6Y3X4T1N9M8P7R2",
		URL:         "https://example.com/page",
		Name:        "enter",
		Timestamp:   time.Now().UTC(),
		CollectorID: "col-1",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{name: "missing url", mutate: func(e *Event) { e.URL = "" }, wantErr: "url is required"},
		{name: "missing name", mutate: func(e *Event) { e.Name = "" }, wantErr: "name is required"},
		{name: "missing collector", mutate: func(e *Event) { e.CollectorID = "" }, wantErr: "collector_id is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt := valid
			tc.mutate(&evt)
			err := evt.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEvent_EstimatedSize(t *testing.T) {
	evt := Event{
		ID:          "0123456789",
		URL:         "https://example.com",
		Name:        "enter",
		CollectorID: "col-1",
	}
	require.Equal(t, eventBaseSize+10+19+5+5, evt.EstimatedSize())

	// The referrer contributes once set.
	evt.Referrer = "https://ref.example.com"
	require.Equal(t, eventBaseSize+10+19+5+5+23, evt.EstimatedSize())
}
