package slab

// PageList is an intrusive doubly linked list of Pages: the link
// pointers live in each page's own tail metadata, so list membership
// costs no separate allocation and moving a page between lists is
// O(1). Order within a list carries no meaning.
type PageList struct {
	head     uintptr
	tail     uintptr
	elements int
}

// Len returns the number of pages currently threaded into the list.
func (l *PageList) Len() int { return l.elements }

// IsEmpty reports whether the list has no pages.
func (l *PageList) IsEmpty() bool { return l.elements == 0 }

// Contains reports whether a page with the given base address is
// threaded into this list.
func (l *PageList) Contains(addr uintptr) bool {
	for cur := l.head; cur != 0; cur = PageAt(cur).next() {
		if cur == addr {
			return true
		}
	}
	return false
}

// PushFront threads p onto the head of the list.
func (l *PageList) PushFront(p Page) {
	p.setPrev(0)
	p.setNext(l.head)
	if l.head != 0 {
		PageAt(l.head).setPrev(p.base)
	} else {
		l.tail = p.base
	}
	l.head = p.base
	l.elements++
}

// PopFront removes and returns the head page, if any.
func (l *PageList) PopFront() (Page, bool) {
	if l.head == 0 {
		return Page{}, false
	}
	p := Page{base: l.head}
	next := p.next()
	l.head = next
	if next != 0 {
		PageAt(next).setPrev(0)
	} else {
		l.tail = 0
	}
	p.setNext(0)
	p.setPrev(0)
	l.elements--
	return p, true
}

// Remove unthreads the page at addr from the list, if present.
func (l *PageList) Remove(addr uintptr) (Page, bool) {
	if !l.Contains(addr) {
		return Page{}, false
	}
	p := Page{base: addr}
	prev, next := p.prev(), p.next()
	if prev != 0 {
		PageAt(prev).setNext(next)
	} else {
		l.head = next
	}
	if next != 0 {
		PageAt(next).setPrev(prev)
	} else {
		l.tail = prev
	}
	p.setNext(0)
	p.setPrev(0)
	l.elements--
	return p, true
}

// ForEach walks the list in head-to-tail order, invoking f on each
// page. It captures each page's next link before calling f, so f may
// freely move the current page to a different list (it may not move
// or remove pages later in the walk). Stops early if f returns false.
func (l *PageList) ForEach(f func(Page) bool) {
	for cur := l.head; cur != 0; {
		p := Page{base: cur}
		next := p.next()
		if !f(p) {
			return
		}
		cur = next
	}
}
