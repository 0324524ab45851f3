package sqlserver

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row: column name → driver value. The driver yields
// int64 for integer types, float64 for float/real, []byte for
// decimal/numeric, string for character types, time.Time for dates, and
// nil for NULL.
type Row map[string]any

func (r Row) value(col string) (any, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("column %q not in result", col)
	}
	return v, nil
}

// Int64 returns col as an integer.
func (r Row) Int64(col string) (int64, error) {
	v, err := r.value(col)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return parseInt(col, string(x))
	case string:
		return parseInt(col, x)
	case nil:
		return 0, fmt.Errorf("column %q is NULL", col)
	default:
		return 0, fmt.Errorf("column %q: cannot convert %T to integer", col, v)
	}
}

func parseInt(col, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	// decimal text such as "1024.000000"
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return int64(f), nil
}

// Float64 returns col as a float.
func (r Row) Float64(col string) (float64, error) {
	v, err := r.value(col)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case []byte:
		return parseFloat(col, string(x))
	case string:
		return parseFloat(col, x)
	case nil:
		return 0, fmt.Errorf("column %q is NULL", col)
	default:
		return 0, fmt.Errorf("column %q: cannot convert %T to float", col, v)
	}
}

func parseFloat(col, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return f, nil
}

// Text returns col as a string. NULL becomes "".
func (r Row) Text(col string) (string, error) {
	v, err := r.value(col)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "", nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	default:
		return fmt.Sprint(x), nil
	}
}

// Time returns col as a time.
func (r Row) Time(col string) (time.Time, error) {
	v, err := r.value(col)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("column %q: cannot convert %T to time", col, v)
	}
	return t, nil
}
