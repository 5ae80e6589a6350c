package book

import "testing"

func BenchmarkAdd(b *testing.B) {
	bk := NewBook()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bk.Add(Bid, 10000+int64(i%512), 1)
	}
}

func BenchmarkAddRemove(b *testing.B) {
	bk := NewBook()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		price := 10000 + int64(i%512)
		_ = bk.Add(Ask, price, 5)
		_ = bk.Remove(Ask, price, 5)
	}
}

func BenchmarkMatchCrossed(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		bk := NewBook()
		for p := int64(1); p <= 64; p++ {
			_ = bk.Add(Bid, 10000+p, 10)
			_ = bk.Add(Ask, 10000-p, 10)
		}
		b.StartTimer()
		bk.Match()
	}
}

func BenchmarkDepth(b *testing.B) {
	bk := NewBook()
	for p := int64(0); p < 256; p++ {
		_ = bk.Add(Bid, 9000+p, 10)
		_ = bk.Add(Ask, 10000+p, 10)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bk.Depth(20)
	}
}
