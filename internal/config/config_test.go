package config

import (
	"testing"
	"time"
)

func TestParseVoucherCodes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []VoucherCode
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace", raw: "   ", want: nil},
		{
			name: "normalized",
			raw:  `[{"code":" party50 ","value":50},{"code":"bonus10","value":10}]`,
			want: []VoucherCode{{Code: "PARTY50", Value: 50}, {Code: "BONUS10", Value: 10}},
		},
		{
			name: "drops blank and non-positive",
			raw:  `[{"code":"","value":50},{"code":"FREE","value":0},{"code":"NEG","value":-5},{"code":"OK","value":1}]`,
			want: []VoucherCode{{Code: "OK", Value: 1}},
		},
		{name: "invalid json", raw: `not json`, wantErr: true},
		{name: "wrong shape", raw: `{"code":"X","value":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVoucherCodes(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVoucherCodes: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("code %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("VOUCHER_CODES", `[{"code":"x","value":5}]`)
	t.Setenv("COST_PARTNER", "20")
	t.Setenv("COUNTDOWN_SECONDS", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("HTTP_HEADER_TIMEOUT_SECONDS", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Costs.Partner != 20 || cfg.Costs.BaseGeneration != 5 {
		t.Errorf("costs = %+v", cfg.Costs)
	}
	if len(cfg.VoucherCodes) != 1 || cfg.VoucherCodes[0].Code != "X" {
		t.Errorf("vouchers = %+v", cfg.VoucherCodes)
	}
	// Sub-second countdown rounds up to the minimum.
	if cfg.CountdownSeconds != 1 {
		t.Errorf("countdown = %d", cfg.CountdownSeconds)
	}
	if cfg.HTTPTimeout != 180*time.Second {
		t.Errorf("http timeout = %s", cfg.HTTPTimeout)
	}
	if cfg.HTTPHeaderTimeout != 90*time.Second {
		t.Errorf("header timeout = %s", cfg.HTTPHeaderTimeout)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without an api key")
	}
}

func TestLoadRejectsBrokenVouchers(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("VOUCHER_CODES", "broken")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted broken voucher codes")
	}
}
