package bitrix

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// EncodeQuery encodes parameters the way the portal expects them inside batch
// commands: nested maps and lists become bracketed keys (filter[>=DATE]=...).
func EncodeQuery(params portal.Params) string {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendQueryValue(values, k, params[k])
	}
	return values.Encode()
}

func appendQueryValue(values url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
		values.Add(key, "")
	case string:
		values.Add(key, v)
	case bool:
		if v {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	case portal.Params:
		appendQueryMap(values, key, map[string]any(v))
	case portal.Record:
		appendQueryMap(values, key, map[string]any(v))
	case map[string]any:
		appendQueryMap(values, key, v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for mk, mv := range v {
			m[mk] = mv
		}
		appendQueryMap(values, key, m)
	case []any:
		for i, item := range v {
			appendQueryValue(values, key+"["+strconv.Itoa(i)+"]", item)
		}
	case []string:
		for i, item := range v {
			values.Add(key+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				appendQueryValue(values, key+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
			}
			return
		}
		values.Add(key, fmt.Sprint(value))
	}
}

func appendQueryMap(values url.Values, key string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendQueryValue(values, key+"["+k+"]", m[k])
	}
}
