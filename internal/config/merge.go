package config

// Merge combines a parent layer with a child layer under the strict
// composition rules of the inheritance chain:
//
//   - mapping + mapping merge recursively
//   - sequence + sequence concatenate, parent items first
//   - scalar + scalar (or any mixed shapes) conflict: a scalar must be
//     defined in exactly one layer
//   - a key present on one side only is taken unchanged
//
// Neither input is mutated. The operation is associative over chained
// layers and never drops a key present in either input.
func Merge(parent, child *Node) (*Node, error) {
	return mergeAt(parent, child, "")
}

func mergeAt(parent, child *Node, path string) (*Node, error) {
	if parent == nil {
		return child.Clone(), nil
	}
	if child == nil {
		return parent.Clone(), nil
	}

	switch {
	case parent.Kind == KindMap && child.Kind == KindMap:
		out := parent.Clone()
		for _, key := range child.keys {
			childVal := child.children[key]
			parentVal := out.children[key]
			if parentVal == nil {
				out.Set(key, childVal.Clone())
				continue
			}
			merged, err := mergeAt(parentVal, childVal, joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out.Set(key, merged)
		}
		return out, nil

	case parent.Kind == KindSequence && child.Kind == KindSequence:
		out := parent.Clone()
		for _, item := range child.Items {
			out.Items = append(out.Items, item.Clone())
		}
		return out, nil

	case parent.Kind == KindScalar && child.Kind == KindScalar:
		return nil, newError(MergeConflict, path,
			"scalar defined in both parent and child layers")

	default:
		return nil, newError(MergeConflict, path,
			"incompatible shapes: parent is %s, child is %s", parent.Kind, child.Kind)
	}
}
