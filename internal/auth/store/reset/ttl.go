package reset

import (
	"errors"
	"time"
)

var errInvalidToken = errors.New("reset token id and positive ttl are required")

func validate(jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return errInvalidToken
	}
	return nil
}
