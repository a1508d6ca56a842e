package boruvka

import "errors"

// ErrOutOfQueries is returned when a representative's supernode
// exhausts every sketch level while still returning FAIL — the driver
// cannot make further progress on that component and the query fails
// outright.
var ErrOutOfQueries = errors.New("boruvka: out of queries")
