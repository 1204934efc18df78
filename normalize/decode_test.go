package normalize

import (
	"bytes"
	"mime/multipart"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestDecodeJSONPreservesOrder(t *testing.T) {
	fields, err := DecodeJSON([]byte(`{"z":"1","a":{"first":"Amy","last":"Lee"},"m":3,"flag":true,"none":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	keys := fields.Keys()
	want := []string{"z", "a", "m", "flag", "none"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for index := range want {
		if keys[index] != want[index] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}
	nested, _ := fields.Get("a")
	if !nested.IsComposite() || nested.Fields().Keys()[0] != "first" {
		t.Fatalf("expected nested composite, got %#v", nested)
	}
	number, _ := fields.Get("m")
	if number.Text() != "3" {
		t.Fatalf("expected raw number text, got %q", number.Text())
	}
	flag, _ := fields.Get("flag")
	none, _ := fields.Get("none")
	if flag.Text() != "true" || none.Text() != "" {
		t.Fatalf("unexpected scalar rendering %q %q", flag.Text(), none.Text())
	}
}

func TestDecodeJSONArrays(t *testing.T) {
	fields, err := DecodeJSON([]byte(`{"tags":["a","b",""],"rows":[{"x":"1"},{"x":"2"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tags, _ := fields.Get("tags")
	if tags.Text() != "a, b" {
		t.Fatalf("expected scalar array join, got %q", tags.Text())
	}
	rows, _ := fields.Get("rows")
	if !rows.IsComposite() {
		t.Fatalf("expected object array to be composite")
	}
	second, ok := rows.Child("1")
	if !ok || second.Display() != "2" {
		t.Fatalf("expected index keyed child, got %#v", second)
	}
}

func TestDecodeJSONRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"text"`, `{"broken":`} {
		if _, err := DecodeJSON([]byte(input)); err == nil {
			t.Fatalf("expected error for %s", input)
		}
	}
}

func TestDecodeFormRepeatedKeys(t *testing.T) {
	fields, err := DecodeForm([]byte("q3_name%5Bfirst%5D=Jane&color=red&color=blue&note=a+b"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	first, _ := fields.Get("q3_name[first]")
	if first.Text() != "Jane" {
		t.Fatalf("expected unescaped bracket key, got %q", first.Text())
	}
	color, _ := fields.Get("color")
	if color.Text() != "red, blue" {
		t.Fatalf("expected repeated keys joined, got %q", color.Text())
	}
	note, _ := fields.Get("note")
	if note.Text() != "a b" {
		t.Fatalf("expected plus decoded as space, got %q", note.Text())
	}
	if _, err := DecodeForm([]byte("bad=%zz")); err == nil {
		t.Fatalf("expected escape error")
	}
}

func TestDecodeMultipartSkipsFiles(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("formID", "42")
	file, _ := writer.CreateFormFile("upload", "contract.pdf")
	_, _ = file.Write([]byte("%PDF"))
	_ = writer.WriteField("rawRequest", `{"email":"a@b.com"}`)
	_ = writer.Close()

	fields, err := Decode(writer.FormDataContentType(), body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	keys := fields.Keys()
	if len(keys) != 2 || keys[0] != "formID" || keys[1] != "rawRequest" {
		t.Fatalf("expected text parts only in order, got %v", keys)
	}
	if _, err := DecodeMultipart(body.Bytes(), ""); err == nil {
		t.Fatalf("expected missing boundary error")
	}
}

func TestDecodeSniffsUnknownContentType(t *testing.T) {
	fields, err := Decode("", []byte(` {"email":"a@b.com"}`))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if email, _ := fields.Get("email"); email.Text() != "a@b.com" {
		t.Fatalf("expected sniffed json")
	}
	fields, err = Decode("text/plain", []byte("email=c%40d.com"))
	if err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if email, _ := fields.Get("email"); email.Text() != "c@d.com" {
		t.Fatalf("expected sniffed form")
	}
	fields, err = Decode("", nil)
	if err != nil || fields.Len() != 0 {
		t.Fatalf("expected empty fields for empty body")
	}
}

func TestDecodeQuery(t *testing.T) {
	fields, err := DecodeQuery("?formID=7&formTitle=Signed+Contract")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	title, _ := fields.Get("formTitle")
	if title.Text() != "Signed Contract" {
		t.Fatalf("unexpected title %q", title.Text())
	}
}

func TestDecodeManyKeysStaysLinear(t *testing.T) {
	const keys = 100000
	var jsonBody, formBody strings.Builder
	jsonBody.WriteString("{")
	for i := 0; i < keys; i++ {
		if i > 0 {
			jsonBody.WriteString(",")
			formBody.WriteString("&")
		}
		key := "k" + strconv.Itoa(i)
		jsonBody.WriteString(`"` + key + `":"v"`)
		formBody.WriteString(key + "=v")
	}
	jsonBody.WriteString("}")

	started := time.Now()
	fromJSON, err := DecodeJSON([]byte(jsonBody.String()))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	fromForm, err := DecodeForm([]byte(formBody.String()))
	if err != nil {
		t.Fatalf("decode form: %v", err)
	}
	merged := fromJSON.Merge(fromForm)
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("decoding %d keys took %s", keys, elapsed)
	}
	if fromJSON.Len() != keys || fromForm.Len() != keys || merged.Len() != keys {
		t.Fatalf("unexpected lengths json=%d form=%d merged=%d", fromJSON.Len(), fromForm.Len(), merged.Len())
	}
	if last := merged[keys-1]; last.Key != "k99999" {
		t.Fatalf("expected order preserved, last key %q", last.Key)
	}
}

func TestDecodeFormRepeatedKeysSkipEmptyValues(t *testing.T) {
	fields, err := DecodeForm([]byte("a=&a=x&b=y&b=&c=&c=&a=z"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{"a": "x, z", "b": "y", "c": ""}
	for key, text := range want {
		value, ok := fields.Get(key)
		if !ok || value.Text() != text {
			t.Fatalf("key %s: expected %q, got %q", key, text, value.Text())
		}
	}
	if keys := fields.Keys(); keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("expected first-seen order, got %v", keys)
	}
}

func TestDecodeJSONDuplicateKeyKeepsFirstPosition(t *testing.T) {
	fields, err := DecodeJSON([]byte(`{"a":"1","b":"2","a":"3"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fields.Len() != 2 || fields[0].Key != "a" || fields[0].Value.Text() != "3" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}
