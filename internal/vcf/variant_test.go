package vcf

import "testing"

func TestVariant_End(t *testing.T) {
	tests := []struct {
		name string
		info map[string]interface{}
		want int64
	}{
		{"no END", map[string]interface{}{}, 100},
		{"reference block", map[string]interface{}{"END": "150"}, 150},
		{"END before POS", map[string]interface{}{"END": "50"}, 100},
		{"unparseable END", map[string]interface{}{"END": "x"}, 100},
		{"flag END", map[string]interface{}{"END": true}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Pos: 100, Info: tt.info}
			if got := v.End(); got != tt.want {
				t.Errorf("End() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVariant_SampleValue(t *testing.T) {
	v := &Variant{
		Format:  []string{"GT", "DP", "GQ"},
		Samples: []string{"0/1:35:99", "0/0:.:", "./."},
	}

	tests := []struct {
		sample int
		key    string
		want   string
		ok     bool
	}{
		{0, "GQ", "99", true},
		{0, "DP", "35", true},
		{0, "RGQ", "", false},
		{1, "DP", "", false},
		{1, "GQ", "", false},
		{2, "GQ", "", false},
		{3, "GT", "", false},
		{-1, "GT", "", false},
	}

	for _, tt := range tests {
		got, ok := v.SampleValue(tt.sample, tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SampleValue(%d, %q) = %q, %v; want %q, %v", tt.sample, tt.key, got, ok, tt.want, tt.ok)
		}
	}
}
