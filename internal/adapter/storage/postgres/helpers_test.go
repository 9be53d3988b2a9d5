package postgres

import "github.com/pashagolub/pgxmock/v4"

// anyArgs matches n statement arguments without pinning their values.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
