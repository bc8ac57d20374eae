package render

import "strings"

func set(names string) map[string]bool {
	m := make(map[string]bool)
	for _, n := range strings.Fields(names) {
		m[n] = true
	}
	return m
}

// voidElements have no closing tag.
var voidElements = set(`area base br col embed hr img input link meta param
	source track wbr`)

// inlineElements stay on one line in pretty mode.
var inlineElements = set(`a abbr b bdi bdo br cite code data dfn em i kbd
	label mark q s samp small span strong sub sup time u var wbr`)

// rawTextElements hold text that is written unescaped.
var rawTextElements = set(`script style`)

// booleanAttrs are written without a value when their value is empty.
var booleanAttrs = set(`allowfullscreen async autofocus autoplay checked
	controls default defer disabled formnovalidate hidden inert ismap
	itemscope loop multiple muted nomodule novalidate open playsinline
	readonly required reversed selected`)

func isVoidElement(tag string) bool { return voidElements[tag] }

func isInlineElement(tag string) bool { return inlineElements[tag] }

func isBooleanAttr(name string) bool { return booleanAttrs[name] }
