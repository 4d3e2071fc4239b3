package api

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

func TestDecodeListAcceptsArrayOrPage(t *testing.T) {
	c := qt.New(t)

	page, err := decodeList[models.Category](json.RawMessage(` [{"id": 1, "name": "Books"}, {"id": 2, "name": "Home"}]`))
	c.Assert(err, qt.IsNil)
	c.Assert(page.Count, qt.Equals, 2)
	c.Assert(page.Results[1].Name, qt.Equals, "Home")

	page, err = decodeList[models.Category](json.RawMessage(`{"count": 41, "next": "?page=2", "previous": null, "results": [{"id": 3}]}`))
	c.Assert(err, qt.IsNil)
	c.Assert(page.Count, qt.Equals, 41)
	c.Assert(*page.Next, qt.Equals, "?page=2")
	c.Assert(page.Results, qt.HasLen, 1)

	_, err = decodeList[models.Category](json.RawMessage(`"nope"`))
	c.Assert(err, qt.ErrorMatches, "decoding page: .*")
}

func TestErrorFromResponse(t *testing.T) {
	c := qt.New(t)
	for _, test := range []struct {
		status int
		body   string
		kind   error
		msg    string
	}{
		{400, `{"email": ["Enter a valid email address."], "password": ["Too short."]}`, errors.BadRequest, "email: Enter a valid email address.; password: Too short."},
		{401, `{"detail": "Token expired"}`, errors.Unauthorized, "Token expired"},
		{403, `{"error": "Admins only"}`, errors.Forbidden, "Admins only"},
		{404, ``, errors.NotFound, "Not Found"},
		{409, `{"non_field_errors": ["Duplicate"]}`, errors.AlreadyExists, "Duplicate"},
	} {
		err := errorFromResponse(test.status, []byte(test.body))
		c.Check(errors.Is(err, test.kind), qt.IsTrue, qt.Commentf("status %d", test.status))
		c.Check(err.Error(), qt.Equals, test.msg)
	}

	err := errorFromResponse(502, []byte("bad gateway"))
	c.Assert(err, qt.ErrorMatches, "server returned 502: bad gateway")
}

func TestRouteOf(t *testing.T) {
	c := qt.New(t)
	c.Assert(routeOf("/products/12/"), qt.Equals, "/products/{id}/")
	c.Assert(routeOf("/orders/ORD-AB12/receipt-pdf/"), qt.Equals, "/orders/{id}/receipt-pdf/")
	c.Assert(routeOf("/cart/"), qt.Equals, "/cart/")
}
