package fhevm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// KeyMaterial identifies the relayer network's active FHE public key and
// CRS. Encrypt payloads must reference both ids.
type KeyMaterial struct {
	PublicKeyID  string
	PublicKeyURL string
	CRSID        string
	CRSURL       string
}

// sdkLoader performs the process-wide, once-only fetch of relayer key
// material. Concurrent callers racing on first use await the same in-flight
// fetch; only a process restart clears loaded state. A failed fetch is
// surfaced to its caller and leaves the loader unloaded, so a later
// acquisition may try again.
type sdkLoader struct {
	fetch func(ctx context.Context) (*KeyMaterial, error)

	mu       sync.Mutex
	material *KeyMaterial
	inflight chan struct{}
}

func newSDKLoader(relayerURL string, client *http.Client) *sdkLoader {
	return &sdkLoader{
		fetch: func(ctx context.Context) (*KeyMaterial, error) {
			return fetchKeyMaterial(ctx, relayerURL, client)
		},
	}
}

func (l *sdkLoader) Load(ctx context.Context) (*KeyMaterial, error) {
	for {
		l.mu.Lock()
		if l.material != nil {
			m := l.material
			l.mu.Unlock()
			return m, nil
		}
		if l.inflight != nil {
			ch := l.inflight
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ch:
			}
			continue
		}
		ch := make(chan struct{})
		l.inflight = ch
		l.mu.Unlock()

		m, err := l.fetch(ctx)

		l.mu.Lock()
		if err == nil {
			l.material = m
		}
		l.inflight = nil
		l.mu.Unlock()
		close(ch)

		if err != nil {
			return nil, &BootstrapError{Stage: "load relayer keys", Err: err}
		}
		return m, nil
	}
}

func fetchKeyMaterial(ctx context.Context, relayerURL string, client *http.Client) (*KeyMaterial, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relayerURL+"/v1/keyurl", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("keyurl returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Response struct {
			FHEKeyInfo []struct {
				FHEPublicKey struct {
					DataID string   `json:"data_id"`
					URLs   []string `json:"urls"`
				} `json:"fhe_public_key"`
			} `json:"fhe_key_info"`
			CRS map[string]struct {
				DataID string   `json:"data_id"`
				URLs   []string `json:"urls"`
			} `json:"crs"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode keyurl response: %w", err)
	}
	if len(payload.Response.FHEKeyInfo) == 0 {
		return nil, fmt.Errorf("keyurl response carries no key info")
	}

	material := &KeyMaterial{
		PublicKeyID: payload.Response.FHEKeyInfo[0].FHEPublicKey.DataID,
	}
	if urls := payload.Response.FHEKeyInfo[0].FHEPublicKey.URLs; len(urls) > 0 {
		material.PublicKeyURL = urls[0]
	}
	if crs, ok := payload.Response.CRS["2048"]; ok {
		material.CRSID = crs.DataID
		if len(crs.URLs) > 0 {
			material.CRSURL = crs.URLs[0]
		}
	}
	return material, nil
}
