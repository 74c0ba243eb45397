package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, mw echo.MiddlewareFunc, target string) error {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
}

func assertBadRequest(t *testing.T, err error) {
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestMandateAssemblyIdAttribute(t *testing.T) {
	assert.NoError(t, run(t, MandateAssemblyIdAttribute, "/?assemblyId=GRCh38"))
	assert.NoError(t, run(t, MandateAssemblyIdAttribute, "/?assemblyId=hg19"))
	assertBadRequest(t, run(t, MandateAssemblyIdAttribute, "/"))
	assertBadRequest(t, run(t, MandateAssemblyIdAttribute, "/?assemblyId=mm10"))
	assertBadRequest(t, run(t, MandateAssemblyIdAttribute, "/?assemblyId=Other"))
}

func TestAssemblyIdFrom(t *testing.T) {
	e := echo.New()
	for target, want := range map[string]constants.AssemblyId{
		"/?assemblyId=hg37":   assid.GRCh37,
		"/?assemblyId=hg38":   assid.GRCh38,
		"/?assemblyId=GRCh38": assid.GRCh38,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		var got constants.AssemblyId
		err := MandateAssemblyIdAttribute(func(c echo.Context) error {
			got = AssemblyIdFrom(c)
			return nil
		})(c)
		require.NoError(t, err)
		assert.Equal(t, want, got, target)
		assert.Equal(t, want, c.Get(AssemblyIdKey), target)
	}

	// without the middleware the query parameter is cast directly
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?assemblyId=hg19", nil), httptest.NewRecorder())
	assert.Equal(t, assid.GRCh37, AssemblyIdFrom(c))
}

func TestValidateOptionalPagination(t *testing.T) {
	assert.NoError(t, run(t, ValidateOptionalPagination, "/"))
	assert.NoError(t, run(t, ValidateOptionalPagination, "/?from=10&size=50"))
	assertBadRequest(t, run(t, ValidateOptionalPagination, "/?from=-1"))
	assertBadRequest(t, run(t, ValidateOptionalPagination, "/?size=0"))
	assertBadRequest(t, run(t, ValidateOptionalPagination, "/?size=abc"))
	assertBadRequest(t, run(t, ValidateOptionalPagination, "/?size=5000"))
}
