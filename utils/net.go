package utils

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
)

var (
	AuthHead = "Authorization"
)

// InterfaceAddress returns the first unicast address configured on the
// named network interface.
func InterfaceAddress(ifname string) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, i := range ifaces {
		if i.Name != ifname {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			return "", err
		}
		for _, a := range addrs {
			switch v := a.(type) {
			case *net.IPAddr:
				return v.IP.String(), nil
			case *net.IPNet:
				return v.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no address found on interface %q", ifname)
}

func BuildBasicAuthMd5(user, pass []byte) http.Header {
	if len(user) == 0 && len(pass) == 0 {
		return http.Header{}
	}
	bearstr := fmt.Sprintf("%s:%x", user, md5.Sum(pass))
	b64 := base64.StdEncoding.EncodeToString([]byte(bearstr))
	return http.Header{
		AuthHead: []string{fmt.Sprintf("Basic %s", b64)},
	}
}
