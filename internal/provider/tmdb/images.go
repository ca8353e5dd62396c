package tmdb

import (
	"sort"
)

// SelectImages returns the candidates of one category in presentation order.
// Posters, stills and profiles keep the service's order. Backdrops are offered
// as a list to pick from, so they are ranked by vote average and then vote
// count, both descending; equal candidates keep their input order.
func SelectImages(images ImageCollection, category ImageCategory) []ImageCandidate {
	switch category {
	case CategoryPoster:
		return cloneCandidates(images.Posters)
	case CategoryStill:
		return cloneCandidates(images.Stills)
	case CategoryProfile:
		return cloneCandidates(images.Profiles)
	case CategoryBackdrop:
		backdrops := cloneCandidates(images.Backdrops)
		sort.SliceStable(backdrops, func(i, j int) bool {
			if backdrops[i].VoteAverage != backdrops[j].VoteAverage {
				return backdrops[i].VoteAverage > backdrops[j].VoteAverage
			}
			return backdrops[i].VoteCount > backdrops[j].VoteCount
		})
		return backdrops
	}
	return []ImageCandidate{}
}

func cloneCandidates(in []ImageCandidate) []ImageCandidate {
	out := make([]ImageCandidate, len(in))
	copy(out, in)
	return out
}

// ImageURL joins a base URL from the service settings with a relative image
// path. Empty paths yield "".
func ImageURL(base, path string) string {
	if path == "" {
		return ""
	}
	return base + path
}
