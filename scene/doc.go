// Package scene holds the retained 3D representation of a molecular
// structure: a tree of groups and meshes referencing shared unit
// geometries and cached materials.
//
// Builders translate a parsed molecule into a scene subtree for one
// representation style (ball-and-stick, spacefill, ribbon). Construction
// is chunked through an internal step queue so large structures never
// monopolize the render goroutine, and every geometry is tagged with the
// GPU context epoch it was built under so stale subtrees can be detected
// after a context loss.
package scene
