package bitfield

// BytesPerWord is the size in bytes of one occupancy word, used by
// callers sizing the metadata region that holds a SlotMap alongside
// the page's prev/next links and heap id.
const BytesPerWord = WordBits / 8

// Size is the number of bytes a fully-populated SlotMap occupies.
const Size = MaxWords * BytesPerWord
