// Package client is a thin TCP client for the kvs-server wire protocol,
// grounded on the dial/call shape of cmd/client but speaking line-delimited
// JSON instead of net/rpc.
package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/epokhe/kvs/proto"
)

// ErrKeyNotFound is returned by Remove when the server reports that the key
// does not exist, distinguishing that case from a network, protocol, or
// other server-side failure.
var ErrKeyNotFound = errors.New(proto.KeyNotFoundMessage)

type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		dec:  json.NewDecoder(bufio.NewReader(conn)),
		enc:  json.NewEncoder(conn),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(req proto.Request) (proto.Response, error) {
	if err := c.enc.Encode(req); err != nil {
		return proto.Response{}, err
	}
	var resp proto.Response
	if err := c.dec.Decode(&resp); err != nil {
		return proto.Response{}, err
	}
	return resp, nil
}

func (c *Client) Set(key, value string) error {
	resp, err := c.call(proto.SetRequest(key, value))
	if err != nil {
		return err
	}
	if resp.Set == nil {
		return fmt.Errorf("unexpected response to set: %+v", resp)
	}
	if !resp.Set.IsOk() {
		return errors.New(resp.Set.Err())
	}
	return nil
}

// Get returns the value and true on a hit, "" and false on a miss. A server
// error is reported through err, never through the bool.
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.call(proto.GetRequest(key))
	if err != nil {
		return "", false, err
	}
	if resp.Get == nil {
		return "", false, fmt.Errorf("unexpected response to get: %+v", resp)
	}
	if !resp.Get.IsOk() {
		return "", false, errors.New(resp.Get.Err())
	}
	if resp.Get.Value() == nil {
		return "", false, nil
	}
	return *resp.Get.Value(), true, nil
}

func (c *Client) Remove(key string) error {
	resp, err := c.call(proto.RemoveRequest(key))
	if err != nil {
		return err
	}
	if resp.Remove == nil {
		return fmt.Errorf("unexpected response to remove: %+v", resp)
	}
	if !resp.Remove.IsOk() {
		if resp.Remove.Err() == proto.KeyNotFoundMessage {
			return ErrKeyNotFound
		}
		return errors.New(resp.Remove.Err())
	}
	return nil
}
