package gateway

import "testing"

func TestLatencySampler_Empty(t *testing.T) {
	s := NewLatencySampler(100)
	p50, p95, p99 := s.Percentiles()
	if p50 != 0 || p95 != 0 || p99 != 0 {
		t.Errorf("no samples: got (%v,%v,%v), want zeros", p50, p95, p99)
	}
}

func TestLatencySampler_SingleSample(t *testing.T) {
	s := NewLatencySampler(100)
	s.Observe(42.5)
	p50, p95, p99 := s.Percentiles()
	if p50 != 42.5 || p95 != 42.5 || p99 != 42.5 {
		t.Errorf("one sample: got (%v,%v,%v), want all 42.5", p50, p95, p99)
	}
}

func TestLatencySampler_Percentiles(t *testing.T) {
	s := NewLatencySampler(10000)
	for i := 1; i <= 1000; i++ {
		s.Observe(float64(i))
	}

	p50, p95, p99 := s.Percentiles()
	if p50 != 501 {
		t.Errorf("p50: got %v, want 501", p50)
	}
	if p95 != 951 {
		t.Errorf("p95: got %v, want 951", p95)
	}
	if p99 != 991 {
		t.Errorf("p99: got %v, want 991", p99)
	}
}

func TestLatencySampler_OldSamplesAgeOut(t *testing.T) {
	s := NewLatencySampler(10)
	for i := 1; i <= 20; i++ {
		s.Observe(float64(i))
	}

	if s.Count() != 10 {
		t.Fatalf("count: got %d, want 10", s.Count())
	}
	// Only 11..20 survive.
	p50, _, p99 := s.Percentiles()
	if p50 != 16 {
		t.Errorf("p50 after wrap: got %v, want 16", p50)
	}
	if p99 != 20 {
		t.Errorf("p99 after wrap: got %v, want 20", p99)
	}
}

func TestLatencySampler_Count(t *testing.T) {
	s := NewLatencySampler(100)
	if s.Count() != 0 {
		t.Errorf("initial count: got %d, want 0", s.Count())
	}
	for i := 0; i < 5; i++ {
		s.Observe(float64(i))
	}
	if s.Count() != 5 {
		t.Errorf("count: got %d, want 5", s.Count())
	}
}
