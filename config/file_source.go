package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FileSource serves client configuration from a YAML document:
//
//	clients:
//	  uofl:
//	    version: 2
//	    payroll:
//	      night_pay_rate: 65
//	    invoice:
//	      micro_facilities: [MH01]
//	    incentives:
//	      - company: UofL
//	        cost_centers: [ICU]
//	        shift_type: Night
//	        amount: 2.0
//
// Documents are converted to the same JSON records the database stores, so
// both sources go through one parse path.
type FileSource struct {
	clients map[string]fileClient
}

type fileClient struct {
	ClientConfigJSON `yaml:",inline"`
	Version          int                 `yaml:"version"`
	Incentives       []IncentiveRuleJSON `yaml:"incentives"`
}

type fileDocument struct {
	Clients map[string]fileClient `yaml:"clients"`
}

// LoadFileSource reads and parses a YAML client file.
func LoadFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client config file: %w", err)
	}
	return ParseFileSource(data)
}

// ParseFileSource parses a YAML client document.
func ParseFileSource(data []byte) (*FileSource, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse client config YAML: %w", err)
	}
	if doc.Clients == nil {
		doc.Clients = map[string]fileClient{}
	}
	return &FileSource{clients: doc.Clients}, nil
}

// ClientIDs lists the configured clients in sorted order.
func (s *FileSource) ClientIDs() []string {
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *FileSource) ClientConfig(_ context.Context, clientID string) (*ClientRecord, error) {
	c, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(c.ClientConfigJSON)
	if err != nil {
		return nil, err
	}
	return &ClientRecord{ClientID: clientID, ConfigJSON: string(data), Version: c.Version}, nil
}

func (s *FileSource) IncentiveRules(_ context.Context, clientID string) ([]RuleRecord, error) {
	c, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	out := make([]RuleRecord, 0, len(c.Incentives))
	for i, rj := range c.Incentives {
		data, err := json.Marshal(rj)
		if err != nil {
			return nil, err
		}
		active := rj.Active == nil || *rj.Active
		id := rj.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", clientID, i+1)
		}
		out = append(out, RuleRecord{ID: id, ClientID: clientID, Position: i, RuleJSON: string(data), Active: active})
	}
	return out, nil
}
