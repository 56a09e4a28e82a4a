package compute

import "context"

// Serial runs work items in order on the calling goroutine.
type Serial struct{}

func (Serial) Name() string { return "serial" }

func (Serial) Map(ctx context.Context, n int, fn func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}
