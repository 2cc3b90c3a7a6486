package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitgate/internal/fault"
)

func TestParseDateRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		args      map[string]any
		wantStart string
		wantEnd   string
		wantErr   string
	}{
		{
			name:      "defaults to the last seven days",
			args:      nil,
			wantStart: "2026-03-04",
			wantEnd:   "2026-03-10",
		},
		{
			name:      "start only",
			args:      map[string]any{"start_date": "2026-03-01"},
			wantStart: "2026-03-01",
			wantEnd:   "2026-03-10",
		},
		{
			name:      "end only",
			args:      map[string]any{"end_date": "2026-02-28"},
			wantStart: "2026-02-22",
			wantEnd:   "2026-02-28",
		},
		{
			name:      "single day",
			args:      map[string]any{"start_date": "2026-03-05", "end_date": "2026-03-05"},
			wantStart: "2026-03-05",
			wantEnd:   "2026-03-05",
		},
		{
			name:      "empty strings use defaults",
			args:      map[string]any{"start_date": "", "end_date": ""},
			wantStart: "2026-03-04",
			wantEnd:   "2026-03-10",
		},
		{
			name:      "exactly ninety days",
			args:      map[string]any{"start_date": "2025-12-11", "end_date": "2026-03-10"},
			wantStart: "2025-12-11",
			wantEnd:   "2026-03-10",
		},
		{
			name:    "ninety one days",
			args:    map[string]any{"start_date": "2025-12-10", "end_date": "2026-03-10"},
			wantErr: "maximum is 90",
		},
		{
			name:    "start after end",
			args:    map[string]any{"start_date": "2026-03-10", "end_date": "2026-03-01"},
			wantErr: "is after end_date",
		},
		{
			name:    "bad format",
			args:    map[string]any{"start_date": "03/01/2026"},
			wantErr: "start_date must be YYYY-MM-DD",
		},
		{
			name:    "not a string",
			args:    map[string]any{"end_date": 20260301},
			wantErr: "end_date must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseDateRange(tt.args, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, fault.Is(err, fault.KindValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := rangeOf(r)
			assert.Equal(t, tt.wantStart, got.StartDate)
			assert.Equal(t, tt.wantEnd, got.EndDate)
		})
	}
}
