package debug

import (
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func Accept(host, port string, log *logrus.Entry) (net.Conn, error) {
	addr := net.JoinHostPort(host, port)
	log.WithField("addr", addr).Info("waiting for connection")
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen failed")
	}
	defer ln.Close()
	conn, err := ln.Accept()
	return conn, errors.Wrap(err, "accept failed")
}
