package rtc

import (
	"fmt"

	"github.com/pion/ice/v4"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
)

type TURNServer struct {
	URL        string
	Username   string
	Credential string
}

// Options describes how peer connections reach each other.
type Options struct {
	STUN       []string
	TURN       *TURNServer
	ForceRelay bool
	// UDPPort > 0 multiplexes every connection's ICE traffic over one port.
	UDPPort  int
	PublicIP string
	// Loopback gathers 127.0.0.1 candidates, for peers on one host.
	Loopback bool
}

func DefaultSTUN() []string {
	return []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
		"stun:stun2.l.google.com:19302",
	}
}

func DefaultOptions() Options {
	return Options{STUN: DefaultSTUN()}
}

func (o Options) Configuration() webrtc.Configuration {
	cfg := webrtc.Configuration{
		BundlePolicy:  webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy: webrtc.RTCPMuxPolicyRequire,
	}
	if len(o.STUN) > 0 {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{URLs: o.STUN})
	}
	if o.TURN != nil && o.TURN.URL != "" {
		cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{
			URLs:           []string{o.TURN.URL},
			Username:       o.TURN.Username,
			Credential:     o.TURN.Credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	if o.ForceRelay {
		cfg.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	}
	return cfg
}

// NewAPI builds a pion API with the default codecs, the default interceptors
// plus periodic PLI, and an optional single-port UDP mux.
func NewAPI(o Options) (*webrtc.API, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	settings := webrtc.SettingEngine{}
	if o.UDPPort > 0 {
		udpMux, err := ice.NewMultiUDPMuxFromPort(o.UDPPort)
		if err != nil {
			return nil, fmt.Errorf("udp mux on port %d: %w", o.UDPPort, err)
		}
		settings.SetICEUDPMux(udpMux)
	}
	if o.PublicIP != "" {
		settings.SetNAT1To1IPs([]string{o.PublicIP}, webrtc.ICECandidateTypeHost)
	}
	if o.Loopback {
		settings.SetIncludeLoopbackCandidate(true)
	}

	registry := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, err
	}
	registry.Add(pli)
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, err
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settings),
	), nil
}
