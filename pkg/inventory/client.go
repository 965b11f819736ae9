package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"
	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/reconcile"
	"github.com/nfsherd/nfsherd/utils"
)

var _ reconcile.Inventory = &Client{}

const (
	resource = "cluster"
)

var (
	defaultHeader = http.Header{
		"content-type": []string{"application/json"},
		"Accept":       []string{"application/json"},
	}
)

// Conf is the static connection configuration for the storage cluster
// management API.
type Conf struct {
	ApiUrl   string
	User     string
	Password string
}

// Client queries the storage cluster daemon over its JSON management API.
type Client struct {
	cli  *req.Req
	conf *Conf
}

func NewClient(conf *Conf) *Client {
	if conf == nil || conf.ApiUrl == "" {
		panic("cluster api configure must not be nil and api url must not be empty")
	}
	return &Client{
		cli:  req.New(),
		conf: conf,
	}
}

// ListServices returns the service instances known to the cluster. An empty
// service returns every instance; otherwise the listing is filtered to the
// given kind.
func (c *Client) ListServices(ctx context.Context, service string) ([]reconcile.ServiceInstance, error) {
	var body struct {
		Services []reconcile.ServiceInstance `json:"services"`
	}
	err := c.do(ctx, func(url string, au http.Header) error {
		data := map[string]interface{}{
			"op": "list_services",
		}
		resp, err := c.cli.Post(url, au, defaultHeader, req.BodyJSON(data))

		klog.V(4).Infof("list services done, resp:%v err:%v", resp, err)
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		return resp.ToJSON(&body)
	})
	if err != nil {
		return nil, err
	}
	if service == "" {
		return body.Services, nil
	}
	var out []reconcile.ServiceInstance
	for _, s := range body.Services {
		if s.Service == service {
			out = append(out, s)
		}
	}
	return out, nil
}

// MonAddresses returns the cluster monitor addresses published to clients.
func (c *Client) MonAddresses(ctx context.Context) ([]string, error) {
	var body struct {
		Addresses []string `json:"addresses"`
	}
	err := c.do(ctx, func(url string, au http.Header) error {
		data := map[string]interface{}{
			"op": "get_mon_addresses",
		}
		resp, err := c.cli.Post(url, au, defaultHeader, req.BodyJSON(data))

		klog.V(4).Infof("get mon addresses done, resp:%v err:%v", resp, err)
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		return resp.ToJSON(&body)
	})
	if err != nil {
		return nil, err
	}
	return body.Addresses, nil
}

// checkStatus turns a non-2xx response into an error so callers never
// mistake an api failure for an empty result.
func checkStatus(resp *req.Resp) error {
	code := resp.Response().StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	return fmt.Errorf("cluster api returned status %d: %s", code, strings.TrimSpace(resp.String()))
}

func (c *Client) do(ctx context.Context, fn func(url string, au http.Header) error) error {
	var auth http.Header
	if c.conf.User != "" {
		auth = utils.BuildBasicAuthMd5([]byte(c.conf.User), []byte(c.conf.Password))
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.conf.ApiUrl, "/"), resource)
	return fn(url, auth)
}
