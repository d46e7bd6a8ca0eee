package container

import (
	"iter"

	"github.com/pavanmanishd/blockarena/internal/check"
)

// nilNode terminates node chains.
const nilNode = -1

// Node is one slot of a LinkedList's node pool. Slots link to each other by
// index, so the pool can be reallocated without fixing up links.
type Node[T any] struct {
	value T
	next  int
}

// LinkedList is a singly linked list whose nodes come from a pool owned by
// the list. Popped nodes go back to a free chain and are handed out again
// by later pushes; the pool only grows when the free chain is empty.
type LinkedList[T any] struct {
	alloc Allocator[Node[T]]
	head  int
	tail  int
	free  int // head of the free chain; most recently freed first
	count int
}

// NewLinkedList returns an empty list with its pool on the Go heap.
func NewLinkedList[T any]() *LinkedList[T] {
	return NewLinkedListWith[T](NewHeap[Node[T]]())
}

// NewLinkedListWith returns an empty list whose pool is managed by alloc.
// Slots alloc already holds are put on the free chain.
func NewLinkedListWith[T any](alloc Allocator[Node[T]]) *LinkedList[T] {
	l := &LinkedList[T]{alloc: alloc, head: nilNode, tail: nilNode, free: nilNode}
	l.seed(0, alloc.Capacity())
	return l
}

// Len returns the number of elements.
func (l *LinkedList[T]) Len() int { return l.count }

// Max returns the number of pooled nodes, used or free.
func (l *LinkedList[T]) Max() int { return l.alloc.Capacity() }

// seed puts slots [from, to) on the free chain, lowest index first.
func (l *LinkedList[T]) seed(from, to int) {
	nodes := l.alloc.Data()
	for i := to - 1; i >= from; i-- {
		nodes[i].next = l.free
		l.free = i
	}
}

// Resize grows the pool to at least n nodes and frees the new slots.
func (l *LinkedList[T]) Resize(n int) error {
	old := l.alloc.Capacity()
	if n <= old {
		return nil
	}
	got, err := l.alloc.Resize(n)
	if err != nil {
		return err
	}
	l.seed(old, got)
	return nil
}

func (l *LinkedList[T]) acquire(v T) (int, error) {
	if l.free == nilNode {
		if err := l.Resize(l.alloc.Capacity() + 1); err != nil {
			return nilNode, err
		}
	}
	n := l.free
	nodes := l.alloc.Data()
	l.free = nodes[n].next
	nodes[n] = Node[T]{value: v, next: nilNode}
	l.count++
	return n, nil
}

func (l *LinkedList[T]) release(n int) T {
	nodes := l.alloc.Data()
	v := nodes[n].value
	nodes[n] = Node[T]{next: l.free}
	l.free = n
	l.count--
	return v
}

// nodeAt walks from the head to the i-th node.
func (l *LinkedList[T]) nodeAt(i int) int {
	nodes := l.alloc.Data()
	n := l.head
	for ; i > 0; i-- {
		n = nodes[n].next
	}
	return n
}

// PushHead inserts v at the front.
func (l *LinkedList[T]) PushHead(v T) error {
	n, err := l.acquire(v)
	if err != nil {
		return err
	}
	l.alloc.Data()[n].next = l.head
	l.head = n
	if l.tail == nilNode {
		l.tail = n
	}
	return nil
}

// PushTail appends v.
func (l *LinkedList[T]) PushTail(v T) error {
	n, err := l.acquire(v)
	if err != nil {
		return err
	}
	if l.tail == nilNode {
		l.head = n
	} else {
		l.alloc.Data()[l.tail].next = n
	}
	l.tail = n
	return nil
}

// Push inserts v so that it ends up at index i, 0 <= i <= Len().
func (l *LinkedList[T]) Push(i int, v T) error {
	check.That(i >= 0 && i <= l.count, "push index %d in [0, %d]", i, l.count)
	switch i {
	case 0:
		return l.PushHead(v)
	case l.count:
		return l.PushTail(v)
	}
	n, err := l.acquire(v)
	if err != nil {
		return err
	}
	nodes := l.alloc.Data()
	prev := l.nodeAt(i - 1)
	nodes[n].next = nodes[prev].next
	nodes[prev].next = n
	return nil
}

// PopHead removes and returns the first element. The list must not be
// empty.
func (l *LinkedList[T]) PopHead() T {
	check.That(l.count > 0, "pop from empty list")
	n := l.head
	l.head = l.alloc.Data()[n].next
	if l.head == nilNode {
		l.tail = nilNode
	}
	return l.release(n)
}

// PopTail removes and returns the last element. The list must not be
// empty. It walks the list to find the new tail.
func (l *LinkedList[T]) PopTail() T {
	check.That(l.count > 0, "pop from empty list")
	if l.count == 1 {
		return l.PopHead()
	}
	prev := l.nodeAt(l.count - 2)
	n := l.tail
	l.alloc.Data()[prev].next = nilNode
	l.tail = prev
	return l.release(n)
}

// Pop removes and returns the element at index i.
func (l *LinkedList[T]) Pop(i int) T {
	check.Index(i, l.count)
	switch i {
	case 0:
		return l.PopHead()
	case l.count - 1:
		return l.PopTail()
	}
	nodes := l.alloc.Data()
	prev := l.nodeAt(i - 1)
	n := nodes[prev].next
	nodes[prev].next = nodes[n].next
	return l.release(n)
}

// Get returns the element at index i, walking from the head.
func (l *LinkedList[T]) Get(i int) T {
	check.Index(i, l.count)
	return l.alloc.Data()[l.nodeAt(i)].value
}

// Head returns the first element and false when the list is empty.
func (l *LinkedList[T]) Head() (T, bool) {
	if l.count == 0 {
		var zero T
		return zero, false
	}
	return l.alloc.Data()[l.head].value, true
}

// Clear returns every node to the free chain.
func (l *LinkedList[T]) Clear() {
	for l.count > 0 {
		l.PopHead()
	}
}

// All iterates over index and element pairs from head to tail.
func (l *LinkedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		i := 0
		for n := l.head; n != nilNode; n = l.alloc.Data()[n].next {
			if !yield(i, l.alloc.Data()[n].value) {
				return
			}
			i++
		}
	}
}
