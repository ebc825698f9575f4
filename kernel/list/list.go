// Package list implements the intrusive doubly-linked list that backs
// the scheduler's ready queue and the semaphore wait queues. Element
// nodes are embedded inside their owning structure; the owner is
// recovered with an unsafe container-of conversion at the embedding
// site. All mutations run with interrupts disabled.
package list

import "kestrel/kernel/irq"

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	disableIntFn = irq.Disable
	restoreIntFn = irq.Set
)

// Elem is a list node embedded in its containing structure. A node
// holds no payload; it can be linked into at most one list at a time.
type Elem struct {
	Prev, Next *Elem
}

// List is a sentinel-headed doubly-linked queue. The head and tail
// sentinels are fields of the list itself so their addresses remain
// stable for the lifetime of the list.
type List struct {
	head Elem
	tail Elem
}

// Init links the two sentinels together forming an empty list.
func (l *List) Init() {
	l.head.Prev = nil
	l.head.Next = &l.tail
	l.tail.Prev = &l.head
	l.tail.Next = nil
}

// InsertBefore links elem directly before the supplied node.
func (l *List) InsertBefore(before, elem *Elem) {
	prev := disableIntFn()

	elem.Prev = before.Prev
	elem.Next = before
	before.Prev.Next = elem
	before.Prev = elem

	restoreIntFn(prev)
}

// Push links elem at the front of the list.
func (l *List) Push(elem *Elem) {
	l.InsertBefore(l.head.Next, elem)
}

// Append links elem at the back of the list.
func (l *List) Append(elem *Elem) {
	l.InsertBefore(&l.tail, elem)
}

// Remove unlinks elem from the list that contains it.
func (l *List) Remove(elem *Elem) {
	prev := disableIntFn()

	elem.Prev.Next = elem.Next
	elem.Next.Prev = elem.Prev

	restoreIntFn(prev)
}

// Pop unlinks and returns the first element. The list must not be empty.
func (l *List) Pop() *Elem {
	elem := l.head.Next
	l.Remove(elem)
	return elem
}

// Empty returns true if the list holds no elements.
func (l *List) Empty() bool {
	return l.head.Next == &l.tail
}

// Len walks the list and returns the number of linked elements.
func (l *List) Len() uint32 {
	var length uint32
	for elem := l.head.Next; elem != &l.tail; elem = elem.Next {
		length++
	}
	return length
}

// Find returns true if target is currently linked into the list.
func (l *List) Find(target *Elem) bool {
	for elem := l.head.Next; elem != &l.tail; elem = elem.Next {
		if elem == target {
			return true
		}
	}
	return false
}

// Visitor is invoked by Traverse for each element. Returning true stops
// the traversal and makes Traverse return the current element.
type Visitor func(*Elem) bool

// Traverse walks the list invoking visit on each element until the
// visitor returns true. It returns the matching element or nil.
func (l *List) Traverse(visit Visitor) *Elem {
	for elem := l.head.Next; elem != &l.tail; elem = elem.Next {
		if visit(elem) {
			return elem
		}
	}
	return nil
}
