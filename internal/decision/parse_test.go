package decision

import (
	"testing"

	"aitrader/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    models.Decision
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"operation":"open_long","symbol":"BTC","target_portion_of_balance":0.3,"leverage":10,"reason":"breakout"}`,
			want: models.Decision{Operation: models.OperationOpenLong, Symbol: "BTC", TargetPortion: 0.3, Leverage: 10, Reason: "breakout"},
		},
		{
			name: "json fence",
			text: "Here is my decision:\n```json\n{\"operation\":\"close_short\",\"symbol\":\"eth\",\"target_portion_of_balance\":1.0}\n```\nGood luck.",
			want: models.Decision{Operation: models.OperationCloseShort, Symbol: "ETH", TargetPortion: 1.0},
		},
		{
			name: "bare fence",
			text: "```\n{\"operation\":\"hold\",\"reason\":\"choppy market\"}\n```",
			want: models.Decision{Operation: models.OperationHold, Reason: "choppy market"},
		},
		{
			name: "legacy buy vocabulary",
			text: `{"operation":"buy_long","symbol":"SOL","target_portion_of_balance":0.2,"leverage":5}`,
			want: models.Decision{Operation: models.OperationOpenLong, Symbol: "SOL", TargetPortion: 0.2, Leverage: 5},
		},
		{
			name: "unknown operation passes through",
			text: `{"operation":"moon","symbol":"DOGE","target_portion_of_balance":0.5}`,
			want: models.Decision{Operation: "moon", Symbol: "DOGE", TargetPortion: 0.5},
		},
		{
			name:    "not json",
			text:    "I think we should buy bitcoin",
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestMapOperation(t *testing.T) {
	tests := []struct {
		in   string
		want models.Operation
	}{
		{"buy_long", models.OperationOpenLong},
		{"buy", models.OperationOpenLong},
		{"sell_short", models.OperationOpenShort},
		{"close_long", models.OperationCloseLong},
		{"close_short", models.OperationCloseShort},
		{"hold", models.OperationHold},
		{" HOLD ", models.OperationHold},
		{"open_long", models.OperationOpenLong},
		{"open_short", models.OperationOpenShort},
		{"liquidate_everything", models.Operation("liquidate_everything")},
	}
	for _, tt := range tests {
		if got := MapOperation(tt.in); got != tt.want {
			t.Errorf("MapOperation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPlaceholderKey(t *testing.T) {
	for _, key := range []string{"default-key-please-update-in-settings", "default", ""} {
		if !IsPlaceholderKey(key) {
			t.Errorf("IsPlaceholderKey(%q) = false, want true", key)
		}
	}
	if IsPlaceholderKey("sk-live-abc123") {
		t.Error("real key flagged as placeholder")
	}
}
