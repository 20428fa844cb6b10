package auditfeed

import (
	"sort"
	"strings"
)

// Audit is the security-audit summary for one protocol.
type Audit struct {
	Protocol       string   `json:"protocol"`
	Auditors       []string `json:"auditors"`
	AuditDate      string   `json:"audit_date"`
	Score          int      `json:"score"`
	CriticalIssues int      `json:"critical_issues"`
	HighIssues     int      `json:"high_issues"`
	MediumIssues   int      `json:"medium_issues"`
	LowIssues      int      `json:"low_issues"`
	AuditURL       string   `json:"audit_url"`
}

// Service serves audit summaries from a curated dataset. Live audit
// provider APIs (CertiK, DeFiSafety) can be layered in later; the
// curated entries cover the protocols the product tracks today.
type Service struct {
	known map[string]Audit
}

func NewService() *Service {
	return &Service{known: knownAudits()}
}

// ProtocolAudit returns the audit summary for a protocol, if known.
// Lookup is case-insensitive.
func (s *Service) ProtocolAudit(protocol string) (*Audit, bool) {
	audit, ok := s.known[strings.ToLower(strings.TrimSpace(protocol))]
	if !ok {
		return nil, false
	}
	return &audit, true
}

// Protocols returns the names of all protocols with known audits.
func (s *Service) Protocols() []string {
	names := make([]string, 0, len(s.known))
	for name := range s.known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func knownAudits() map[string]Audit {
	return map[string]Audit{
		"mantle": {
			Protocol:     "mantle",
			Auditors:     []string{"CertiK", "Trail of Bits"},
			AuditDate:    "2024-01-15",
			Score:        95,
			MediumIssues: 2,
			LowIssues:    5,
			AuditURL:     "https://mantle.xyz/audits",
		},
		"meth": {
			Protocol:     "meth",
			Auditors:     []string{"CertiK", "OpenZeppelin"},
			AuditDate:    "2024-02-10",
			Score:        92,
			HighIssues:   1,
			MediumIssues: 3,
			LowIssues:    4,
			AuditURL:     "https://mantle.xyz/meth-audit",
		},
		"merchantmoe": {
			Protocol:     "merchantmoe",
			Auditors:     []string{"Peckshield", "CertiK"},
			AuditDate:    "2023-12-20",
			Score:        88,
			HighIssues:   2,
			MediumIssues: 4,
			LowIssues:    6,
			AuditURL:     "https://merchantmoe.com/audits",
		},
		"fusionx": {
			Protocol:     "fusionx",
			Auditors:     []string{"Peckshield"},
			AuditDate:    "2024-03-01",
			Score:        90,
			HighIssues:   1,
			MediumIssues: 2,
			LowIssues:    3,
			AuditURL:     "https://fusionx.finance/audits",
		},
		"aave": {
			Protocol:     "aave",
			Auditors:     []string{"Trail of Bits", "OpenZeppelin", "Sigma Prime"},
			AuditDate:    "2023-11-30",
			Score:        98,
			MediumIssues: 1,
			LowIssues:    2,
			AuditURL:     "https://docs.aave.com/security",
		},
		"uniswap": {
			Protocol:     "uniswap",
			Auditors:     []string{"Trail of Bits", "Consensys Diligence"},
			AuditDate:    "2024-01-05",
			Score:        96,
			MediumIssues: 2,
			LowIssues:    3,
			AuditURL:     "https://docs.uniswap.org/security",
		},
	}
}
