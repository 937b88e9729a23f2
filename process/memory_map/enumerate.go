package memory_map

// EnumerateReadable walks the address space from zero using q and returns the
// committed, readable, non-guard spans in ascending order. When clipEnd is
// greater than clipBase each span is intersected with [clipBase, clipEnd) and
// empty intersections are dropped. The walk stops on the first failed query
// or when the next span would not advance.
func EnumerateReadable(q RegionQuerier, clipBase, clipEnd uint64) []Region {
	clip := clipEnd > clipBase
	var regions []Region

	var cur uint64
	for {
		info, err := q.QueryRegion(cur)
		if err != nil || info.Size == 0 {
			break
		}

		end := info.End()
		if end <= cur {
			break
		}
		if info.IsReadable() {
			start := info.Base
			stop := end
			if clip {
				start = max(start, clipBase)
				stop = min(stop, clipEnd)
			}
			if stop > start {
				regions = append(regions, Region{Address: start, Size: stop - start})
			}
		}

		if clip && end >= clipEnd {
			break
		}
		cur = end
	}

	return regions
}
