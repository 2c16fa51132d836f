package ipapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQueryFieldsWithoutLanguage(t *testing.T) {
	base, err := Free().resolve("", pathSingle, "")
	require.NoError(t, err)
	u := encodeQuery(base, Request{Fields: []Field{FieldCountryName, FieldIP}})
	q := u.Query()
	assert.Equal(t, "country,query", q.Get("fields"))
	_, hasLang := q["lang"]
	assert.False(t, hasLang)
	_, hasKey := q["key"]
	assert.False(t, hasKey)
}

func TestEncodeQueryProAlwaysCarriesKey(t *testing.T) {
	reqs := []Request{
		{},
		{Language: "es"},
		{Fields: AllFields(), Language: "de"},
		{Query: "apple.com", Fields: []Field{FieldStatus}},
	}
	for _, r := range reqs {
		base, err := Pro("test-key").resolve("", pathSingle, r.Query)
		require.NoError(t, err)
		u := encodeQuery(base, r)
		assert.Equal(t, "test-key", u.Query().Get("key"), "%+v", r)
	}
}

func TestEncodeQueryIsReproducible(t *testing.T) {
	base, err := Pro("k").resolve("", pathSingle, "8.8.8.8")
	require.NoError(t, err)
	r := Request{Fields: []Field{FieldCity, FieldAS}, Language: "ja"}
	a := encodeQuery(base, r).String()
	b := encodeQuery(base, r).String()
	assert.Equal(t, a, b)
	assert.Equal(t, "https://pro.ip-api.com/json/8.8.8.8?fields=city%2Cas&key=k&lang=ja", a)
	// encodeQuery 不修改传入的端点
	assert.Equal(t, "key=k", base.RawQuery)
}

func TestEncodeQueryAllFieldsUsesCanonicalOrder(t *testing.T) {
	base, err := Free().resolve("", pathSingle, "")
	require.NoError(t, err)
	u := encodeQuery(base, Request{Fields: AllFields()})
	assert.Equal(t,
		"as,city,countryCode,country,query,isp,lat,lon,message,mobile,org,proxy,region,regionName,reverse,status,timezone,zip",
		u.Query().Get("fields"))
}

func TestEncodeBatchOmitsEmptyKeys(t *testing.T) {
	body, err := encodeBatch([]Request{
		{Query: "208.80.152.201", Fields: []Field{FieldCountryName, FieldCountryCode, FieldLatitude, FieldLongitude, FieldOrganization, FieldIP}},
		{Query: "91.198.174.192", Language: "es"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"query":"208.80.152.201","fields":"country,countryCode,lat,lon,org,query"},
		{"query":"91.198.174.192","lang":"es"}
	]`, string(body))

	empty, err := encodeBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestRequestUnmarshalAcceptsStringsAndObjects(t *testing.T) {
	var reqs []Request
	err := json.Unmarshal([]byte(`["1.1.1.1", {"query":"8.8.8.8","fields":"country,lat","lang":"fr"}]`), &reqs)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, Request{Query: "1.1.1.1"}, reqs[0])
	assert.Equal(t, Request{Query: "8.8.8.8", Fields: []Field{FieldCountryName, FieldLatitude}, Language: "fr"}, reqs[1])
}

func TestDecodeSuccessResult(t *testing.T) {
	r, err := DecodeResult([]byte(`{"status":"success","query":"216.58.214.206","country":"United States","lat":37.4192,"lon":-122.0574}`))
	require.NoError(t, err)
	require.NotNil(t, r.Status)
	assert.Equal(t, StatusSuccess, *r.Status)
	assert.Equal(t, "216.58.214.206", *r.IP)
	assert.Equal(t, "United States", *r.CountryName)
	assert.Equal(t, 37.4192, *r.Latitude)
	assert.Equal(t, -122.0574, *r.Longitude)
	assert.True(t, r.Succeeded())

	populated := map[Field]bool{FieldStatus: true, FieldIP: true, FieldCountryName: true, FieldLatitude: true, FieldLongitude: true}
	for _, f := range AllFields() {
		assert.Equal(t, populated[f], r.Has(f), f.String())
	}
}

func TestDecodeFailResultIsNotAnError(t *testing.T) {
	r, err := DecodeResult([]byte(`{"status":"fail","message":"invalid query","query":"failed.lookup"}`))
	require.NoError(t, err)
	assert.True(t, r.Failed())
	assert.Equal(t, "invalid query", *r.Message)
	assert.Equal(t, "failed.lookup", *r.IP)
	assert.Nil(t, r.CountryName)
}

func TestDecodeToleratesTypeMismatch(t *testing.T) {
	r, err := DecodeResult([]byte(`{"lat":"not-a-number","lon":4.89517,"city":42,"mobile":"yes","proxy":false,"status":"maybe","zip":"","org":null}`))
	require.NoError(t, err)
	assert.Nil(t, r.Latitude)
	assert.Nil(t, r.City)
	assert.Nil(t, r.Mobile)
	assert.Nil(t, r.Status, "unknown status decodes to absent")
	assert.Nil(t, r.Organization, "null decodes to absent")
	require.NotNil(t, r.Longitude)
	assert.Equal(t, 4.89517, *r.Longitude)
	require.NotNil(t, r.Proxy)
	assert.False(t, *r.Proxy)
	require.NotNil(t, r.ZipCode)
	assert.Equal(t, "", *r.ZipCode)
}

func TestDecodeEmptyObject(t *testing.T) {
	r, err := DecodeResult([]byte(`{}`))
	require.NoError(t, err)
	for _, f := range AllFields() {
		assert.False(t, r.Has(f))
	}
}

func TestDecodeMalformedSingle(t *testing.T) {
	for _, in := range []string{``, `"just a string"`, `{"status":"succ`, `null`, `[{"status":"success"}]`, `42`} {
		r, err := DecodeResult([]byte(in))
		assert.Nil(t, r, in)
		assert.True(t, errors.Is(err, ErrInvalidResponseData), "%q: %v", in, err)
	}
}

func TestDecodeBatchKeepsServerOrder(t *testing.T) {
	out, err := DecodeResults([]byte(`[{"status":"success","query":"208.80.152.201","country":"United States"}, {"status":"success","query":"91.198.174.192","country":"Holanda"}]`))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "208.80.152.201", *out[0].IP)
	assert.Equal(t, "United States", *out[0].CountryName)
	assert.Equal(t, "91.198.174.192", *out[1].IP)
	assert.Equal(t, "Holanda", *out[1].CountryName)
}

func TestDecodeBatchElementTolerance(t *testing.T) {
	out, err := DecodeResults([]byte(`[{"query":"1.1.1.1"}, "oops", null]`))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "1.1.1.1", *out[0].IP)
	assert.False(t, out[1].Has(FieldIP))
	assert.False(t, out[2].Has(FieldIP))
}

func TestDecodeBatchRequiresArray(t *testing.T) {
	for _, in := range []string{`{"status":"success"}`, `"x"`, `[{"a":1}`, ``} {
		_, err := DecodeResults([]byte(in))
		assert.True(t, errors.Is(err, ErrInvalidResponseData), "%q: %v", in, err)
	}
}

func TestResultMarshalUsesWireNames(t *testing.T) {
	r, err := DecodeResult([]byte(`{"status":"success","query":"1.1.1.1","country":"Australia","lat":-33.49,"mobile":false}`))
	require.NoError(t, err)
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","query":"1.1.1.1","country":"Australia","lat":-33.49,"mobile":false}`, string(b))

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, *r, back)
}

func TestResultString(t *testing.T) {
	r, err := DecodeResult([]byte(`{"status":"fail","message":"reserved range"}`))
	require.NoError(t, err)
	assert.Equal(t, "{message: reserved range, status: fail}", r.String())
}
