package config

import "testing"

func TestParseFeeds(t *testing.T) {
	cfg := &Config{Feeds: "NSECM:233.1.2.5:34330:be, nsefo:233.1.2.6:34331:BE ,BSECM:226.1.0.1:11401:le"}
	specs, err := cfg.ParseFeeds()
	if err != nil {
		t.Fatalf("ParseFeeds: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("specs: got %d, want 3", len(specs))
	}

	want := []FeedSpec{
		{Name: "NSECM", Group: "233.1.2.5", Port: 34330, BigEndian: true},
		{Name: "NSEFO", Group: "233.1.2.6", Port: 34331, BigEndian: true},
		{Name: "BSECM", Group: "226.1.0.1", Port: 11401, BigEndian: false},
	}
	for i, w := range want {
		if specs[i] != w {
			t.Errorf("specs[%d]: got %+v, want %+v", i, specs[i], w)
		}
	}
}

func TestParseFeeds_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		feeds string
	}{
		{"empty", ""},
		{"missing_field", "NSECM:233.1.2.5:34330"},
		{"bad_port", "NSECM:233.1.2.5:notaport:be"},
		{"port_out_of_range", "NSECM:233.1.2.5:99999:be"},
		{"bad_endian", "NSECM:233.1.2.5:34330:middle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Feeds: tt.feeds}
			if _, err := cfg.ParseFeeds(); err == nil {
				t.Errorf("expected error for %q", tt.feeds)
			}
		})
	}
}
