package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTryOnSendsMultipartContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/try_on" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("ngrok-skip-browser-warning") == "" || r.Header.Get("Bypass-Tunnel-Reminder") == "" {
			t.Error("tunnel bypass headers missing")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("category"); got != DefaultCategory {
			t.Errorf("category = %q", got)
		}
		if got := r.FormValue("hf_token"); got != "hf_abcdefgh" {
			t.Errorf("hf_token = %q", got)
		}
		for field, want := range map[string]string{"person_image": "PERSON", "garment_image": "GARMENT"} {
			f, _, err := r.FormFile(field)
			if err != nil {
				t.Fatalf("%s: %v", field, err)
			}
			b, _ := io.ReadAll(f)
			if string(b) != want {
				t.Errorf("%s = %q", field, b)
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success", "image_url": "http://srv/result.png"})
	}))
	defer srv.Close()

	resp, err := NewClient().TryOn(context.Background(), srv.URL+"/", TryOnRequest{
		Person:             []byte("PERSON"),
		PersonContentType:  "image/png",
		Garment:            []byte("GARMENT"),
		GarmentContentType: "image/jpeg",
		HFToken:            "hf_abcdefgh",
	})
	if err != nil {
		t.Fatalf("TryOn: %v", err)
	}
	if resp.ResultURL() != "http://srv/result.png" {
		t.Errorf("result = %q", resp.ResultURL())
	}
}

func TestTryOnOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantURL string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "image fallback",
			status:  http.StatusOK,
			body:    `{"status":"success","image":"data:image/png;base64,AAAA"}`,
			wantURL: "data:image/png;base64,AAAA",
		},
		{
			name:   "token required",
			status: http.StatusOK,
			body:   `{"status":"error","error_code":"hf_token_required","message":"Please provide your token"}`,
			check: func(t *testing.T, err error) {
				var tokenErr *TokenRequiredError
				if !errors.As(err, &tokenErr) || tokenErr.Message != "Please provide your token" {
					t.Errorf("err = %v, want TokenRequiredError", err)
				}
			},
		},
		{
			name:   "html offline page",
			status: http.StatusOK,
			body:   `<html>tunnel offline</html>`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrServerOffline) {
					t.Errorf("err = %v, want ErrServerOffline", err)
				}
			},
		},
		{
			name:   "server error detail",
			status: http.StatusInternalServerError,
			body:   `{"detail":"model crashed"}`,
			check: func(t *testing.T, err error) {
				var remote *RemoteError
				if !errors.As(err, &remote) || remote.Message != "model crashed" {
					t.Errorf("err = %v, want RemoteError", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			resp, err := NewClient().TryOn(context.Background(), srv.URL, TryOnRequest{Person: []byte("p"), Garment: []byte("g")})
			if tt.check != nil {
				tt.check(t, err)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resp.ResultURL() != tt.wantURL {
				t.Errorf("result = %q, want %q", resp.ResultURL(), tt.wantURL)
			}
		})
	}
}

func TestRecommendBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["clothing_type"] != "outfit" || body["image_data"] != "data:x" {
			t.Errorf("body = %v", body)
		}
		if v, ok := body["occasion"]; !ok || v != nil {
			t.Errorf("occasion = %v, want explicit null", v)
		}
		io.WriteString(w, `{"status":"success","suggestion":"Wear boots","source":"gemini"}`)
	}))
	defer srv.Close()

	resp, err := NewClient().Recommend(context.Background(), srv.URL, RecommendRequest{ClothingType: "outfit", ImageData: "data:x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Suggestion != "Wear boots" {
		t.Errorf("suggestion = %q", resp.Suggestion)
	}
}

func TestComboDecodesSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/combos/party" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"status":"success","style":"party","clothing":"images/combos/party_jacket.png",
			"accessories":{"chain":"c.png","earring":null,"shoes":"s.png"},"ai_tip":"Shine on"}`)
	}))
	defer srv.Close()

	combo, err := NewClient().Combo(context.Background(), srv.URL, "party")
	if err != nil {
		t.Fatal(err)
	}
	if combo.AITip != "Shine on" || combo.Accessories.Chain != "c.png" || combo.Accessories.Earring != "" {
		t.Errorf("combo = %+v", combo)
	}
}
