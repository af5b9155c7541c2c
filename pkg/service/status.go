package service

import (
	"errors"
	"fmt"

	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	OpRegister  Operation = "Register"
	OpHeartbeat Operation = "Heartbeat"

	CmdRegister  = "trpc.qq_new_tech.status_svc.StatusService.Register"
	CmdHeartbeat = "Heartbeat.Alive"

	registerSuccess    = "register success"
	registerVendorType = 6
	registerRegType    = 1
)

var ErrRegisterRejected = errors.New("online registration rejected")

// Register marks the session online after login or reconnection
type Register struct{}

func (Register) Operation() Operation { return OpRegister }

type Registered struct {
	ServerTime uint32
}

// Heartbeat keeps the connection alive
type Heartbeat struct{}

func (Heartbeat) Operation() Operation { return OpHeartbeat }

type Alive struct{}

func buildRegister(env *Env, _ Register) ([]byte, error) {
	return wire.Serialize(&wire.RegisterRequest{
		Guid:           env.Keystore.GuidHex(),
		CurrentVersion: env.App.CurrentVersion,
		LocaleID:       protocol.LocaleID,
		Online: &wire.OnlineDeviceInfo{
			User:    env.Keystore.DeviceName(),
			Os:      env.App.Kernel,
			OsLower: env.App.VendorOs,
		},
		RegisterVendorType: registerVendorType,
		RegType:            registerRegType,
	}), nil
}

func parseRegister(_ *Env, _ Register, data []byte) (*Registered, error) {
	resp, err := wire.Deserialize[wire.RegisterResponse](data)
	if err != nil {
		return nil, err
	}
	if resp.Message != registerSuccess {
		return nil, fmt.Errorf("%w: %q", ErrRegisterRejected, resp.Message)
	}
	return &Registered{ServerTime: resp.Timestamp}, nil
}

func buildHeartbeat(*Env, Heartbeat) ([]byte, error) {
	return []byte{0, 0, 0, 4}, nil
}

func parseHeartbeat(*Env, Heartbeat, []byte) (*Alive, error) {
	return &Alive{}, nil
}

func statusDescriptors() []*Descriptor {
	return []*Descriptor{
		Define(CmdRegister, protocol.RequestD2Auth, protocol.EncryptD2Key, protocol.All,
			buildRegister, parseRegister),
		Define(CmdHeartbeat, protocol.RequestSimple, protocol.EncryptNone, protocol.All,
			buildHeartbeat, parseHeartbeat),
	}
}

func builtin() []*Descriptor {
	ds := []*Descriptor{keyExchangeDescriptor()}
	ds = append(ds, loginDescriptors()...)
	ds = append(ds, messageDescriptors()...)
	ds = append(ds, statusDescriptors()...)
	return ds
}
