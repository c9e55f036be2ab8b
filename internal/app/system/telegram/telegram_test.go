package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testToken = "123:abc"

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{Token: testToken, ChatID: "-100", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeOK(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(apiResponse{OK: true, Result: raw})
}

func TestSendPhoto(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendPhoto" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("chat_id") != "-100" || r.FormValue("caption") != "Cover" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "cover.png" || string(data) != "PNGDATA" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		writeOK(w, message{Photo: []photoSize{{FileID: "small"}, {FileID: "large"}}})
	}))

	id, err := c.SendPhoto(context.Background(), Photo{Filename: "cover.png", Data: []byte("PNGDATA")}, "Cover")
	if err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	if id != "large" {
		t.Errorf("file id = %q, want largest size", id)
	}
}

func TestSendMediaGroup(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		var media []inputMedia
		if err := json.Unmarshal([]byte(r.FormValue("media")), &media); err != nil {
			t.Errorf("media json: %v", err)
			return
		}
		if len(media) != 2 || media[0].Caption != "Album" || media[1].Caption != "" || media[1].Media != "attach://photo1" {
			t.Errorf("media = %+v", media)
		}
		if _, _, err := r.FormFile("photo1"); err != nil {
			t.Errorf("photo1 missing: %v", err)
		}
		writeOK(w, []message{
			{Photo: []photoSize{{FileID: "a-small"}, {FileID: "a"}}},
			{Photo: []photoSize{{FileID: "b"}}},
		})
	}))

	ids, err := c.SendMediaGroup(context.Background(), []Photo{{Data: []byte("1")}, {Data: []byte("2")}}, "Album")
	if err != nil {
		t.Fatalf("SendMediaGroup: %v", err)
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Errorf("ids = %v", ids)
	}

	if _, err := c.SendMediaGroup(context.Background(), nil, "x"); err == nil {
		t.Error("expected error for empty group")
	}
	if _, err := c.SendMediaGroup(context.Background(), make([]Photo, MaxMediaGroup+1), "x"); err == nil {
		t.Error("expected error for oversized group")
	}
}

func TestUpstreamFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 400, Description: "Bad Request: chat not found"})
	}))

	_, err := c.SendPhoto(context.Background(), Photo{Data: []byte("x")}, "c")
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		t.Errorf("err = %v, want APIError with code 400", err)
	}
	_, err = c.FilePath(context.Background(), "nope")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("FilePath err = %v, want ErrFileNotFound", err)
	}
}

func TestFilePath_TransportFailureIsNotMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Config{Token: testToken, ChatID: "-100", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Close()

	_, err = c.FilePath(context.Background(), "fid")
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	if errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, must not be ErrFileNotFound", err)
	}
}

func TestFilePath_BadResponseIsUpstream(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))

	_, err := c.FilePath(context.Background(), "fid")
	if !errors.Is(err, ErrUpstream) || errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrUpstream only", err)
	}
}

func TestFilePathAndOpenFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+testToken+"/getFile", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file_id") != "fid" {
			t.Errorf("file_id = %q", r.URL.Query().Get("file_id"))
		}
		writeOK(w, file{FileID: "fid", FilePath: "photos/file_1.jpg"})
	})
	mux.HandleFunc("/file/bot"+testToken+"/photos/file_1.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("JPEGBYTES"))
	})
	c := newTestClient(t, mux)

	path, err := c.FilePath(context.Background(), "fid")
	if err != nil || path != "photos/file_1.jpg" {
		t.Fatalf("FilePath = %q, %v", path, err)
	}

	body, err := c.OpenFile(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "JPEGBYTES" {
		t.Errorf("body = %q", data)
	}

	if _, err := c.OpenFile(context.Background(), "photos/missing.jpg"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing file err = %v, want ErrFileNotFound", err)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{Token: "t"}); err == nil {
		t.Error("expected error without chat id")
	}
}
