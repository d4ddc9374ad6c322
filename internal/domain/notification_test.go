package domain

import (
	"testing"
	"time"
)

func TestParseSendTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr error
	}{
		{
			name:  "RFC3339 with zone",
			input: "2030-01-01T03:00:00+03:00",
			want:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "naive ISO-8601 treated as UTC",
			input: "2030-01-01T00:00:00",
			want:  time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "not a timestamp",
			input:   "tomorrow",
			wantErr: ErrInvalidSendTime,
		},
		{
			name:    "date only",
			input:   "2030-01-01",
			wantErr: ErrInvalidSendTime,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSendTime(tc.input)
			if err != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if err == nil && !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestJobIDDerivation(t *testing.T) {
	jobID := JobIDFor("user-123")
	if jobID != "email_user-123" {
		t.Fatalf("unexpected job id %q", jobID)
	}

	userID, ok := UserIDFromJobID(jobID)
	if !ok || userID != "user-123" {
		t.Fatalf("expected roundtrip to user-123, got %q ok=%v", userID, ok)
	}

	if _, ok := UserIDFromJobID("cleanup_user-123"); ok {
		t.Fatal("expected ok=false for a foreign job id")
	}
}

func TestScheduleRequestValidate(t *testing.T) {
	valid := ScheduleRequest{Email: "a@b.com", SendTime: "2030-01-01T00:00:00"}

	tests := []struct {
		name    string
		mutate  func(r *ScheduleRequest)
		wantErr error
	}{
		{"valid", func(r *ScheduleRequest) {}, nil},
		{"missing email", func(r *ScheduleRequest) { r.Email = "" }, ErrMissingRecipient},
		{"missing send_time", func(r *ScheduleRequest) { r.SendTime = "" }, ErrMissingSendTime},
		{"bad send_time", func(r *ScheduleRequest) { r.SendTime = "31/10/2025" }, ErrInvalidSendTime},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			if _, err := req.Validate(); err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
