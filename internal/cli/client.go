package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/latuang/petd/internal/gateway"
)

var clientTimeout = 10 * time.Second

// call sends one typed request to the running daemon and decodes the reply
// envelope. A response with ok=false becomes an error.
func call(addr string, req gateway.Request) (gateway.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return gateway.Response{}, err
	}

	client := &http.Client{Timeout: clientTimeout}
	httpResp, err := client.Post("http://"+addr+"/api/message", "application/json", bytes.NewReader(body))
	if err != nil {
		return gateway.Response{}, fmt.Errorf("daemon not reachable at %s (is 'petd serve' running?): %w", addr, err)
	}
	defer httpResp.Body.Close()

	var resp gateway.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return gateway.Response{}, fmt.Errorf("failed to decode daemon response: %w", err)
	}

	if !resp.OK {
		return resp, fmt.Errorf("daemon refused request: %s", resp.Error)
	}
	return resp, nil
}
