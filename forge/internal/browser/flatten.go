package browser

// FlattenScript serialises the live document with open shadow roots and
// same-origin iframe bodies inlined into the light DOM. Shadow content is
// emitted before the host's light children. An iframe becomes a div carrying
// data-frame-src so the HTML parser keeps its content as elements. Closed
// shadow roots and cross-origin frames are left opaque.
//
// Form state is read from properties, so typed values and checked boxes
// survive serialisation.
const FlattenScript = `() => {
  const voids = new Set(["area","base","br","col","embed","hr","img","input","link","meta","source","track","wbr"]);
  const raw = new Set(["script","style"]);
  const esc = (s) => s.replace(/&/g, "&amp;").replace(/</g, "&lt;").replace(/>/g, "&gt;");
  const attr = (s) => s.replace(/&/g, "&amp;").replace(/"/g, "&quot;");

  function children(list, parentTag) {
    let out = "";
    for (const c of list) out += ser(c, parentTag);
    return out;
  }

  function ser(n, parentTag) {
    switch (n.nodeType) {
    case Node.TEXT_NODE:
      return raw.has(parentTag) ? n.data : esc(n.data);
    case Node.ELEMENT_NODE:
      break;
    default:
      return "";
    }
    let tag = n.localName;
    let attrs = "";
    for (const a of n.attributes) {
      if (tag === "input" && (a.name === "value" || a.name === "checked")) continue;
      attrs += " " + a.name + "=\"" + attr(a.value) + "\"";
    }
    if (tag === "input") {
      if (n.value) attrs += " value=\"" + attr(n.value) + "\"";
      if (n.checked) attrs += " checked";
    }

    let inner = "";
    if (n.shadowRoot) inner += children(n.shadowRoot.childNodes, tag);
    if (tag === "iframe") {
      attrs += " data-frame-src=\"" + attr(n.getAttribute("src") || "") + "\"";
      tag = "div";
      try {
        const d = n.contentDocument;
        if (d && d.body) inner += children(d.body.childNodes, "body");
      } catch (e) {}
    } else if (tag === "template") {
      inner += children(n.content.childNodes, tag);
    } else {
      inner += children(n.childNodes, tag);
    }

    if (voids.has(tag)) return "<" + tag + attrs + ">";
    return "<" + tag + attrs + ">" + inner + "</" + tag + ">";
  }

  return "<!DOCTYPE html>" + ser(document.documentElement, "");
}`
