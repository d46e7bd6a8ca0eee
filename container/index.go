package container

import "math"

// InvalidIndex is the index reported alongside false by lookups that find
// nothing. It is never a valid position.
const InvalidIndex = math.MaxInt
