package retrieval

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// BalanceAcrossCompanies interleaves results round-robin so each target
// company gets equal representation in the top K. topK/len(companies)
// slots go to each company, with the remainder handed out in list order.
// The output is intentionally NOT re-sorted by score afterwards; doing so
// would undo the balancing.
func BalanceAcrossCompanies(chunks []models.RetrievedChunk, companies []string, topK int) []models.RetrievedChunk {
	names := normalizeNames(companies)
	if len(names) == 0 || topK <= 0 {
		return nil
	}

	grouped := groupByCompany(chunks, companies)
	maxAvailable := 0
	for _, name := range names {
		group := grouped[name]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Score > group[j].Score })
		grouped[name] = group
		if len(group) == 0 {
			log.Warn().Str("company", name).Msg("no results for target company")
		}
		if len(group) > maxAvailable {
			maxAvailable = len(group)
		}
	}

	perCompany := topK / len(names)
	if perCompany < 1 {
		perCompany = 1
	}
	remainder := topK % len(names)

	taken := make(map[string]int, len(names))
	var balanced []models.RetrievedChunk

	for round := 0; round < maxAvailable && len(balanced) < topK; round++ {
		for _, name := range names {
			if len(balanced) >= topK {
				break
			}
			group := grouped[name]
			if round >= len(group) {
				continue
			}
			switch {
			case taken[name] < perCompany:
				balanced = append(balanced, group[round])
				taken[name]++
			case remainder > 0 && taken[name] == perCompany:
				balanced = append(balanced, group[round])
				taken[name]++
				remainder--
			}
		}
	}

	if len(balanced) > topK {
		balanced = balanced[:topK]
	}
	return balanced
}

func normalizeNames(companies []string) []string {
	out := make([]string, len(companies))
	for i, c := range companies {
		out[i] = strings.ToLower(c)
	}
	return out
}

func groupByCompany(chunks []models.RetrievedChunk, companies []string) map[string][]models.RetrievedChunk {
	grouped := make(map[string][]models.RetrievedChunk, len(companies))
	for _, name := range normalizeNames(companies) {
		for _, chunk := range chunks {
			if chunk.Company() == name {
				grouped[name] = append(grouped[name], chunk)
			}
		}
	}
	return grouped
}
