package service

import "sante/pkg/platform/sentinel"

func sentinelNotFound() error {
	return sentinel.ErrNotFound
}
