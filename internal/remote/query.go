package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query is a filter over one table of the hosted REST API.
type Query struct {
	c      *Client
	table  string
	params url.Values
	order  []string
}

func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) filter(column, op string, v any) *Query {
	q.params.Add(column, op+"."+formatValue(v))
	return q
}

func (q *Query) Eq(column string, v any) *Query  { return q.filter(column, "eq", v) }
func (q *Query) Neq(column string, v any) *Query { return q.filter(column, "neq", v) }
func (q *Query) Gt(column string, v any) *Query  { return q.filter(column, "gt", v) }
func (q *Query) Gte(column string, v any) *Query { return q.filter(column, "gte", v) }
func (q *Query) Lt(column string, v any) *Query  { return q.filter(column, "lt", v) }
func (q *Query) Lte(column string, v any) *Query { return q.filter(column, "lte", v) }

// ILike matches column case-insensitively against *pattern*.
func (q *Query) ILike(column, pattern string) *Query {
	return q.filter(column, "ilike", "*"+pattern+"*")
}

// Is filters on null/true/false.
func (q *Query) Is(column string, v any) *Query {
	if v == nil {
		return q.filter(column, "is", "null")
	}
	return q.filter(column, "is", v)
}

func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
	}
	q.params.Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

// Or adds a disjunction, e.g. Or("name.ilike.*ac*,code.ilike.*ac*").
func (q *Query) Or(expr string) *Query {
	q.params.Add("or", "("+expr+")")
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Values returns the encoded filter set (exposed for logging and tests).
func (q *Query) Values() url.Values {
	v := url.Values{}
	for k, vs := range q.params {
		v[k] = append([]string(nil), vs...)
	}
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	return v
}

func (q *Query) path() string {
	return "/rest/v1/" + url.PathEscape(q.table)
}

// Execute runs the query and decodes the row list into out.
func (q *Query) Execute(ctx context.Context, out any) error {
	req, apiErr := q.c.request(ctx)
	req.SetQueryParamsFromValues(q.Values())
	resp, err := req.Get(q.path())
	if err := q.c.check("select "+q.table, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

// Single runs the query expecting exactly one row; zero rows is NotFound.
func (q *Query) Single(ctx context.Context, out any) error {
	req, apiErr := q.c.request(ctx)
	req.SetQueryParamsFromValues(q.Values()).
		SetHeader("Accept", "application/vnd.pgrst.object+json")
	resp, err := req.Get(q.path())
	if err := q.c.check("select "+q.table, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

// Count returns the number of rows matching the filters.
func (q *Query) Count(ctx context.Context) (int, error) {
	req, apiErr := q.c.request(ctx)
	v := q.Values()
	v.Set("select", "id")
	req.SetQueryParamsFromValues(v).
		SetHeader("Prefer", "count=exact").
		SetHeader("Range-Unit", "items").
		SetHeader("Range", "0-0")
	resp, err := req.Get(q.path())
	if err := q.c.check("count "+q.table, resp, err, apiErr); err != nil {
		return 0, err
	}
	return parseContentRangeTotal(resp.Header().Get("Content-Range"))
}

// Update patches every row matching the filters.
func (q *Query) Update(ctx context.Context, patch any, out any) error {
	req, apiErr := q.c.request(ctx)
	req.SetQueryParamsFromValues(q.Values()).
		SetHeader("Prefer", "return=representation").
		SetBody(patch)
	resp, err := req.Patch(q.path())
	if err := q.c.check("update "+q.table, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

func (q *Query) Delete(ctx context.Context) error {
	req, apiErr := q.c.request(ctx)
	req.SetQueryParamsFromValues(q.Values())
	resp, err := req.Delete(q.path())
	return q.c.check("delete "+q.table, resp, err, apiErr)
}

// parseContentRangeTotal reads N from "0-0/N" or "*/N".
func parseContentRangeTotal(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("remote count: missing total in Content-Range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("remote count: invalid Content-Range %q: %w", h, err)
	}
	return n, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
