package repositories

import "github.com/aarondl/null/v8"

func nullInt(v int) null.Int { return null.IntFrom(v) }
