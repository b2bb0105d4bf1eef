package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixConvention(t *testing.T) {
	tests := []struct {
		convention PrefixConvention
		method     string
		cacheable  bool
		underlying string
	}{
		{convention: DefaultConvention, method: "_total", cacheable: true, underlying: "total"},
		{convention: DefaultConvention, method: "total", cacheable: false, underlying: "total"},
		{convention: DefaultConvention, method: "__total", cacheable: true, underlying: "_total"},
		{convention: DefaultConvention, method: "_", cacheable: true, underlying: ""},
		{convention: DefaultConvention, method: "", cacheable: false, underlying: ""},
		{convention: PrefixConvention("cached"), method: "cachedTotal", cacheable: true, underlying: "Total"},
		{convention: PrefixConvention("cached"), method: "_total", cacheable: false, underlying: "_total"},
	}

	for _, tt := range tests {
		t.Run(string(tt.convention)+"/"+tt.method, func(t *testing.T) {
			assert.Equal(t, tt.cacheable, tt.convention.Cacheable(tt.method))
			assert.Equal(t, tt.underlying, tt.convention.Underlying(tt.method))
		})
	}
}
