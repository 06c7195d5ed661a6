// Package migrations содержит goose-миграции схемы consumer, встроенные в бинарник
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
