package book

import "testing"

func BenchmarkInsert(b *testing.B) {
	bk := New("BTC-USD")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bk.Insert(limitOrder(uint64(i+1), Bid, int64(100+i%64), 10))
	}
}

func BenchmarkInsertRemove(b *testing.B) {
	bk := New("BTC-USD")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := uint64(i + 1)
		_ = bk.Insert(limitOrder(id, Bid, int64(100+i%64), 10))
		_, _ = bk.Remove(id)
	}
}

func BenchmarkReduce(b *testing.B) {
	bk := New("BTC-USD")
	for i := 0; i < b.N; i++ {
		_ = bk.Insert(limitOrder(uint64(i+1), Ask, int64(100+i%64), 2))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = bk.Reduce(uint64(i+1), 2)
	}
}

func BenchmarkL1View(b *testing.B) {
	bk := New("BTC-USD")
	for i := 0; i < 1024; i++ {
		_ = bk.Insert(limitOrder(uint64(i+1), Bid, int64(100+i%64), 10))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bk.L1View()
	}
}
