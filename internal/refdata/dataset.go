package refdata

// Dataset is the normalized administrative hierarchy of the state.
type Dataset struct {
	Districts      []string                       `json:"districts"`
	Blocks         map[string][]string            `json:"blocks"`
	Municipalities map[string][]string            `json:"municipalities"`
	Corporations   map[string][]string            `json:"corporations"`
	Panchayats     map[string]map[string][]string `json:"panchayats"`
}

// flatDistrict holds panchayat lists that arrived keyed by block only and
// whose block could not be matched to a district.
const flatDistrict = ""

// Parse normalizes a decoded payload. ok is false when the payload carries no
// districts; the caller keeps whatever it had before.
func Parse(payload any) (Dataset, bool) {
	obj, isObject := Normalize(payload).(map[string]any)
	if !isObject {
		return Dataset{}, false
	}
	rawDistricts, found := lookup(obj, "districts")
	if !found {
		return Dataset{}, false
	}

	ds := Dataset{
		Districts:      toStrings(rawDistricts),
		Blocks:         map[string][]string{},
		Municipalities: map[string][]string{},
		Corporations:   map[string][]string{},
		Panchayats:     map[string]map[string][]string{},
	}
	if value, ok := lookup(obj, "blocks"); ok {
		ds.Blocks = toStringMap(value)
	}
	if value, ok := lookup(obj, "municipalities"); ok {
		ds.Municipalities = toStringMap(value)
	}
	if value, ok := lookup(obj, "corporations"); ok {
		ds.Corporations = toStringMap(value)
	}
	if value, ok := lookup(obj, "panchayats"); ok {
		ds.Panchayats = ds.parsePanchayats(value)
	}
	return ds, true
}

// parsePanchayats accepts both block -> names and district -> block -> names.
func (d Dataset) parsePanchayats(v any) map[string]map[string][]string {
	out := map[string]map[string][]string{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for key, value := range obj {
		if nested, isNested := value.(map[string]any); isNested {
			blocks := out[key]
			if blocks == nil {
				blocks = map[string][]string{}
				out[key] = blocks
			}
			for block, names := range nested {
				blocks[block] = toStrings(names)
			}
			continue
		}
		district := d.districtOfBlock(key)
		blocks := out[district]
		if blocks == nil {
			blocks = map[string][]string{}
			out[district] = blocks
		}
		blocks[key] = toStrings(value)
	}
	return out
}

func (d Dataset) districtOfBlock(block string) string {
	for district, blocks := range d.Blocks {
		if contains(blocks, block) {
			return district
		}
	}
	return flatDistrict
}

func (d Dataset) Loaded() bool {
	return len(d.Districts) > 0
}

func (d Dataset) DistrictNames() []string {
	return d.Districts
}

func (d Dataset) BlocksOf(district string) []string {
	return d.Blocks[district]
}

func (d Dataset) MunicipalitiesOf(district string) []string {
	return d.Municipalities[district]
}

func (d Dataset) CorporationsOf(district string) []string {
	return d.Corporations[district]
}

func (d Dataset) PanchayatsOf(district, block string) []string {
	if names, ok := d.Panchayats[district][block]; ok {
		return names
	}
	if !contains(d.Blocks[district], block) {
		return nil
	}
	return d.Panchayats[flatDistrict][block]
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
