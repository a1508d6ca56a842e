package sketch

import "errors"

var errShortBuffer = errors.New("sketch: buffer too short to unmarshal")
