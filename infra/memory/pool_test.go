package memory

import "testing"

type widget struct {
	id int
}

func TestPoolGetPut(t *testing.T) {
	constructed := 0
	p := NewPool(func() *widget {
		constructed++
		return &widget{}
	})

	w := p.Get()
	if w == nil {
		t.Fatal("Get returned nil")
	}
	if constructed != 1 {
		t.Errorf("expected one construction, got %d", constructed)
	}

	w.id = 42
	p.Put(w)

	// Pooled objects come back with their old state; callers reset.
	w2 := p.Get()
	if w2.id != 0 && w2.id != 42 {
		t.Errorf("unexpected id %d", w2.id)
	}
}
