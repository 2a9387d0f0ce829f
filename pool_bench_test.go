//go:build bench

package texshot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alnah/go-texshot/internal/assets"
)

// BenchmarkCompose measures document composition for typical fragments.
func BenchmarkCompose(b *testing.B) {
	c, err := NewComposer(assets.NewEmbeddedLoader(), DefaultStylesheetURL, DefaultFontSize)
	if err != nil {
		b.Fatal(err)
	}
	fragments := map[string]string{
		"mathml": `<math display="block"><msup><mi>x</mi><mn>2</mn></msup></math>`,
		"katex":  `<span class="katex-display"><span class="katex">` + strings.Repeat(`<span class="mord">x</span>`, 64) + `</span></span>`,
	}

	for name, fragment := range fragments {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.Compose(fragment); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSessionPoolAcquireRelease benchmarks one acquire/release cycle
// under parallel load.
func BenchmarkSessionPoolAcquireRelease(b *testing.B) {
	sizes := []int{1, 2, 4, 8}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("size_%d", size), func(b *testing.B) {
			pool := NewSessionPool(size)
			defer pool.Close()
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if err := pool.Acquire(ctx); err != nil {
						b.Error(err)
						return
					}
					pool.Release()
				}
			})
		})
	}
}

// BenchmarkExtract benchmarks markup extraction on typical chat messages.
func BenchmarkExtract(b *testing.B) {
	inputs := map[string]string{
		"no_markup":  "just chatting about lunch plans, nothing to render here",
		"short":      "what is $$e^{i\\pi}+1=0$$ anyway",
		"multi_line": "consider\n$$\n\\int_0^1 x^2\\,dx\n= \\frac{1}{3}\n$$\nthanks",
	}

	for name, text := range inputs {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = Extract(text)
			}
		})
	}
}
