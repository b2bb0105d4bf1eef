package memo

import (
	"context"
	"fmt"
)

// Method0 adapts a function without arguments for RegisterFunc.
func Method0[T any](fn func(ctx context.Context) (T, error)) func(context.Context, ...any) (T, error) {
	return func(ctx context.Context, args ...any) (T, error) {
		if err := arity(args, 0); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}
}

// Method1 adapts a single-argument function for RegisterFunc.
func Method1[A, T any](fn func(ctx context.Context, a A) (T, error)) func(context.Context, ...any) (T, error) {
	return func(ctx context.Context, args ...any) (T, error) {
		var zero T
		if err := arity(args, 1); err != nil {
			return zero, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a)
	}
}

func Method2[A, B, T any](fn func(ctx context.Context, a A, b B) (T, error)) func(context.Context, ...any) (T, error) {
	return func(ctx context.Context, args ...any) (T, error) {
		var zero T
		if err := arity(args, 2); err != nil {
			return zero, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return zero, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a, b)
	}
}

func Method3[A, B, C, T any](fn func(ctx context.Context, a A, b B, c C) (T, error)) func(context.Context, ...any) (T, error) {
	return func(ctx context.Context, args ...any) (T, error) {
		var zero T
		if err := arity(args, 3); err != nil {
			return zero, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return zero, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return zero, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a, b, c)
	}
}

func arity(args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: got %d arguments, want %d", ErrArgumentMismatch, len(args), want)
	}
	return nil
}

func arg[A any](args []any, i int) (A, error) {
	var zero A
	if args[i] == nil {
		// untyped nil is accepted for pointer, interface, map and slice parameters
		if isNil(any(zero)) {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: argument %d is nil, want %T", ErrArgumentMismatch, i, zero)
	}

	v, ok := args[i].(A)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrArgumentMismatch, i, args[i], zero)
	}
	return v, nil
}
